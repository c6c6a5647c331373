package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/254Kioko/chemist-mgs/internal/domain"
	"github.com/254Kioko/chemist-mgs/internal/store"
	"github.com/254Kioko/chemist-mgs/internal/xid"
)

// Store is an in-memory Repository for development and tests. A single
// mutex gives every mutating method the same all-or-nothing behavior the
// PostgreSQL store gets from transactions.
type Store struct {
	mu                sync.RWMutex
	medicines         map[string]domain.Medicine
	medicineIDsByName map[string]string
	suppliersByID     map[string]domain.Supplier
	batchesByID       map[string]domain.IntakeBatch
	salesByID         map[string]domain.Sale
	saleCounters      map[string]int
	saleItemRefs      map[string]int
	settings          domain.Settings
	auditLogs         []domain.AuditLog
	usersByUsername   map[string]domain.UserAccount
}

// seedUsers builds the initial accounts for dev/demo mode. Credentials come
// from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; unset means hardcoded
// dev defaults with a warning. Production runs use PostgreSQL instead.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	medicines := []domain.Medicine{
		{ID: xid.New("med"), Name: "Paracetamol 500mg", UnitPriceCents: 1000, Quantity: 120, CreatedAt: now, UpdatedAt: now},
		{ID: xid.New("med"), Name: "Amoxicillin 250mg", UnitPriceCents: 2500, Quantity: 80, CreatedAt: now, UpdatedAt: now},
		{ID: xid.New("med"), Name: "Ibuprofen 400mg", UnitPriceCents: 1500, Quantity: 90, CreatedAt: now, UpdatedAt: now},
		{ID: xid.New("med"), Name: "Cetirizine 10mg", UnitPriceCents: 800, Quantity: 60, CreatedAt: now, UpdatedAt: now},
		{ID: xid.New("med"), Name: "ORS Sachet", UnitPriceCents: 500, Quantity: 200, CreatedAt: now, UpdatedAt: now},
		{ID: xid.New("med"), Name: "Cough Syrup 100ml", UnitPriceCents: 3200, Quantity: 40, CreatedAt: now, UpdatedAt: now},
	}

	suppliers := []domain.Supplier{
		{ID: xid.New("sup"), Name: "Dawa Distributors", ContactPerson: "Grace Wanjiru", Phone: "+254700000001", Email: "orders@dawadist.example", Company: "Dawa Distributors Ltd", Address: "Industrial Area, Nairobi", CreatedAt: now},
		{ID: xid.New("sup"), Name: "Afya Pharma Supplies", ContactPerson: "John Otieno", Phone: "+254700000002", Email: "sales@afyapharma.example", Company: "Afya Pharma Supplies", Address: "Mombasa Road, Nairobi", CreatedAt: now},
	}

	medicineMap := make(map[string]domain.Medicine, len(medicines))
	nameIndex := make(map[string]string, len(medicines))
	for _, m := range medicines {
		medicineMap[m.ID] = m
		nameIndex[m.Name] = m.ID
	}
	supplierMap := make(map[string]domain.Supplier, len(suppliers))
	for _, s := range suppliers {
		supplierMap[s.ID] = s
	}

	return &Store{
		medicines:         medicineMap,
		medicineIDsByName: nameIndex,
		suppliersByID:     supplierMap,
		batchesByID:       make(map[string]domain.IntakeBatch),
		salesByID:         make(map[string]domain.Sale),
		saleCounters:      make(map[string]int),
		saleItemRefs:      make(map[string]int),
		settings: domain.Settings{
			LowStockThreshold: domain.DefaultLowStockThreshold,
			UpdatedAt:         now,
		},
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
	}
}

// NewEmpty returns a store without seed data. Used by tests that want full
// control over the fixture.
func NewEmpty() *Store {
	s := NewSeeded()
	s.medicines = make(map[string]domain.Medicine)
	s.medicineIDsByName = make(map[string]string)
	s.suppliersByID = make(map[string]domain.Supplier)
	return s
}

func (s *Store) ListMedicines(_ context.Context) ([]domain.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	medicines := make([]domain.Medicine, 0, len(s.medicines))
	for _, m := range s.medicines {
		medicines = append(medicines, m)
	}
	slices.SortFunc(medicines, func(a, b domain.Medicine) int {
		return cmpString(a.Name, b.Name)
	})
	return medicines, nil
}

func (s *Store) GetMedicineByID(_ context.Context, id string) (*domain.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.medicines[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (s *Store) CreateMedicine(_ context.Context, medicine domain.Medicine) (*domain.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.medicineIDsByName[medicine.Name]; exists {
		return nil, fmt.Errorf("%w: medicine %q already exists", store.ErrConflict, medicine.Name)
	}
	s.medicines[medicine.ID] = medicine
	s.medicineIDsByName[medicine.Name] = medicine.ID
	return &medicine, nil
}

func (s *Store) UpdateMedicine(_ context.Context, medicine domain.Medicine, threshold int) (*store.MedicineMutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.medicines[medicine.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if medicine.Name != current.Name {
		if _, exists := s.medicineIDsByName[medicine.Name]; exists {
			return nil, fmt.Errorf("%w: medicine %q already exists", store.ErrConflict, medicine.Name)
		}
		delete(s.medicineIDsByName, current.Name)
		s.medicineIDsByName[medicine.Name] = medicine.ID
	}

	mutation := &store.MedicineMutation{}
	if current.Quantity >= threshold && medicine.Quantity < threshold {
		mutation.Crossings = append(mutation.Crossings, domain.LowStockEvent{
			MedicineID: medicine.ID,
			Name:       medicine.Name,
			Quantity:   medicine.Quantity,
		})
	}

	s.medicines[medicine.ID] = medicine
	mutation.Medicine = medicine
	return mutation, nil
}

func (s *Store) DeleteMedicine(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.medicines[id]
	if !ok {
		return store.ErrNotFound
	}
	if s.saleItemRefs[id] > 0 {
		return fmt.Errorf("%w: medicine %q is referenced by recorded sales", store.ErrConflict, m.Name)
	}
	delete(s.medicines, id)
	delete(s.medicineIDsByName, m.Name)
	return nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suppliers := make([]domain.Supplier, 0, len(s.suppliersByID))
	for _, sup := range s.suppliersByID {
		suppliers = append(suppliers, sup)
	}
	slices.SortFunc(suppliers, func(a, b domain.Supplier) int {
		return cmpString(a.Name, b.Name)
	})
	return suppliers, nil
}

func (s *Store) GetSupplierByID(_ context.Context, id string) (*domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sup, ok := s.suppliersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sup, nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.suppliersByID[supplier.ID] = supplier
	return &supplier, nil
}

func (s *Store) UpdateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.suppliersByID[supplier.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.suppliersByID[supplier.ID] = supplier
	return &supplier, nil
}

func (s *Store) DeleteSupplier(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.suppliersByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.suppliersByID, id)
	return nil
}

func (s *Store) ListIntakeBatches(_ context.Context) ([]domain.IntakeBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batches := make([]domain.IntakeBatch, 0, len(s.batchesByID))
	for _, b := range s.batchesByID {
		batches = append(batches, b)
	}
	slices.SortFunc(batches, func(a, b domain.IntakeBatch) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return batches, nil
}

func (s *Store) GetIntakeBatchByID(_ context.Context, id string) (*domain.IntakeBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batchesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (s *Store) CreateIntakeBatch(_ context.Context, batch domain.IntakeBatch) (*domain.IntakeBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.suppliersByID[batch.SupplierID]; !ok {
		return nil, fmt.Errorf("%w: supplier %q", store.ErrNotFound, batch.SupplierID)
	}
	s.batchesByID[batch.ID] = batch
	return &batch, nil
}

func (s *Store) DeleteIntakeBatch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.batchesByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.batchesByID, id)
	return nil
}

func (s *Store) SyncIntakeBatch(_ context.Context, batchID string, qty int, now time.Time) (*store.SyncMutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, ok := s.batchesByID[batchID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if qty < 1 {
		return nil, fmt.Errorf("%w: sync quantity must be positive", store.ErrValidation)
	}
	if qty > batch.Quantity {
		return nil, fmt.Errorf("%w: batch %q has only %d unit(s) remaining", store.ErrInsufficientStock, batch.ProductName, batch.Quantity)
	}

	mutation := &store.SyncMutation{}
	if id, exists := s.medicineIDsByName[batch.ProductName]; exists {
		m := s.medicines[id]
		m.Quantity += qty
		m.UpdatedAt = now
		s.medicines[id] = m
		mutation.Medicine = m
	} else {
		m := domain.Medicine{
			ID:             xid.New("med"),
			Name:           batch.ProductName,
			UnitPriceCents: batch.UnitCostCents,
			Quantity:       qty,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		s.medicines[m.ID] = m
		s.medicineIDsByName[m.Name] = m.ID
		mutation.Medicine = m
		mutation.Created = true
	}

	batch.Quantity -= qty
	s.batchesByID[batchID] = batch
	mutation.Batch = batch
	return mutation, nil
}

// CreateSale validates every cart line against current stock, allocates
// the day-scoped sale number, captures names and prices, decrements stock
// and records threshold crossings. All under one lock so a failing line
// leaves nothing behind. Lines are validated against a working copy that
// carries earlier decrements forward, so repeated lines for one medicine
// are counted cumulatively.
func (s *Store) CreateSale(_ context.Context, sale domain.Sale, threshold int, now time.Time) (*store.SaleMutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sale.Items) == 0 {
		return nil, store.ErrEmptyCart
	}

	working := make(map[string]domain.Medicine, len(sale.Items))
	var crossings []domain.LowStockEvent
	items := make([]domain.SaleItem, 0, len(sale.Items))
	var total int64
	for _, item := range sale.Items {
		m, ok := working[item.MedicineID]
		if !ok {
			m, ok = s.medicines[item.MedicineID]
			if !ok {
				return nil, fmt.Errorf("%w: medicine %q", store.ErrNotFound, item.MedicineID)
			}
		}
		if item.Qty < 1 {
			return nil, fmt.Errorf("%w: quantity for %q must be positive", store.ErrValidation, m.Name)
		}
		if item.Qty > m.Quantity {
			return nil, fmt.Errorf("%w: %q has %d unit(s) available, %d requested", store.ErrInsufficientStock, m.Name, m.Quantity, item.Qty)
		}

		before := m.Quantity
		m.Quantity -= item.Qty
		m.UpdatedAt = now
		working[m.ID] = m

		lineTotal := int64(item.Qty) * m.UnitPriceCents
		total += lineTotal
		items = append(items, domain.SaleItem{
			MedicineID:      m.ID,
			MedicineName:    m.Name,
			Qty:             item.Qty,
			UnitPriceCents:  m.UnitPriceCents,
			TotalPriceCents: lineTotal,
		})

		if before >= threshold && m.Quantity < threshold {
			crossings = append(crossings, domain.LowStockEvent{
				MedicineID: m.ID,
				Name:       m.Name,
				Quantity:   m.Quantity,
			})
		}
	}

	day := now.UTC().Format("20060102")
	s.saleCounters[day]++
	sale.SaleNumber = fmt.Sprintf("SALE-%s-%04d", day, s.saleCounters[day])
	sale.CreatedAt = now

	for id, m := range working {
		s.medicines[id] = m
	}
	for _, item := range items {
		s.saleItemRefs[item.MedicineID]++
	}

	sale.Items = items
	sale.TotalAmountCents = total
	s.salesByID[sale.ID] = sale

	return &store.SaleMutation{Sale: sale, Crossings: crossings}, nil
}

func (s *Store) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sale, nil
}

func (s *Store) ListSales(_ context.Context, cashierUsername string, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		if cashierUsername != "" && sale.CashierUsername != cashierUsername {
			continue
		}
		sales = append(sales, sale)
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

func (s *Store) GetDailyReport(_ context.Context, from time.Time, to time.Time) (domain.DailyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := domain.DailyReport{Date: from.UTC().Format("2006-01-02")}
	byPayment := map[string]*domain.DailyReportPayment{}
	for _, sale := range s.salesByID {
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		report.Sales++
		report.GrossSalesCents += sale.TotalAmountCents
		entry, ok := byPayment[sale.PaymentMethod]
		if !ok {
			entry = &domain.DailyReportPayment{PaymentMethod: sale.PaymentMethod}
			byPayment[sale.PaymentMethod] = entry
		}
		entry.Sales++
		entry.TotalCents += sale.TotalAmountCents
	}
	for _, entry := range byPayment {
		report.ByPayment = append(report.ByPayment, *entry)
	}
	slices.SortFunc(report.ByPayment, func(a, b domain.DailyReportPayment) int {
		return cmpString(a.PaymentMethod, b.PaymentMethod)
	})
	return report, nil
}

func (s *Store) GetSettings(_ context.Context) (*domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := s.settings
	return &settings, nil
}

func (s *Store) UpdateSettings(_ context.Context, settings domain.Settings) (*domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = settings
	return &settings, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, len(s.auditLogs))
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		logs = append(logs, entry)
	}
	slices.SortFunc(logs, func(a, b domain.AuditLog) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return fmt.Errorf("%w: username %q is taken", store.ErrConflict, user.Username)
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserCredentials(_ context.Context, oldUsername string, newUsername string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[oldUsername]
	if !ok {
		return store.ErrNotFound
	}
	if newUsername != oldUsername {
		if _, exists := s.usersByUsername[newUsername]; exists {
			return fmt.Errorf("%w: username %q is taken", store.ErrConflict, newUsername)
		}
		delete(s.usersByUsername, oldUsername)
	}
	user.Username = newUsername
	user.Password = password
	s.usersByUsername[newUsername] = user
	return nil
}

func cmpString(a, b string) int {
	return strings.Compare(a, b)
}
