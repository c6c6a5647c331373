package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/254Kioko/chemist-mgs/internal/cache"
	"github.com/254Kioko/chemist-mgs/internal/domain"
	"github.com/254Kioko/chemist-mgs/internal/events"
	"github.com/254Kioko/chemist-mgs/internal/notify"
	"github.com/254Kioko/chemist-mgs/internal/policy"
	"github.com/254Kioko/chemist-mgs/internal/store"
	"github.com/254Kioko/chemist-mgs/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const catalogCacheKey = "medicines:catalog"
const catalogCacheTTL = 2 * time.Minute

type Service struct {
	repo       store.Repository
	dispatcher *notify.Dispatcher
	sink       events.Sink
	catalog    cache.CatalogCache
}

func New(repo store.Repository, dispatcher *notify.Dispatcher, sink events.Sink, catalog cache.CatalogCache) *Service {
	if dispatcher == nil {
		dispatcher = notify.NewDispatcher(nil)
	}
	if sink == nil {
		sink = events.LogSink{}
	}
	if catalog == nil {
		catalog = cache.NoopCatalogCache{}
	}

	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		sink:       sink,
		catalog:    catalog,
	}
}

// authorize resolves the actor from the context and consults the
// capability matrix. Missing actor and denied capability look the same to
// the caller.
func (s *Service) authorize(ctx context.Context, resource string, action string) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || !policy.Allows(actor.Role, resource, action) {
		return domain.Actor{}, store.ErrForbidden
	}
	return actor, nil
}

func (s *Service) ListMedicines(ctx context.Context) ([]domain.Medicine, error) {
	if _, err := s.authorize(ctx, policy.ResourceMedicine, policy.ActionRead); err != nil {
		return nil, err
	}

	if cached, hit, err := s.catalog.Get(ctx, catalogCacheKey); err == nil && hit {
		return cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: catalog cache read failed: %v", err)
	}

	medicines, err := s.repo.ListMedicines(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.Set(ctx, catalogCacheKey, medicines, catalogCacheTTL); err != nil {
		log.Printf("[service] WARN: catalog cache write failed: %v", err)
	}
	return medicines, nil
}

func (s *Service) GetMedicine(ctx context.Context, id string) (domain.Medicine, error) {
	if _, err := s.authorize(ctx, policy.ResourceMedicine, policy.ActionRead); err != nil {
		return domain.Medicine{}, err
	}
	m, err := s.repo.GetMedicineByID(ctx, id)
	if err != nil {
		return domain.Medicine{}, err
	}
	return *m, nil
}

func (s *Service) CreateMedicine(ctx context.Context, req domain.MedicineCreateRequest) (domain.Medicine, error) {
	if _, err := s.authorize(ctx, policy.ResourceMedicine, policy.ActionCreate); err != nil {
		return domain.Medicine{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Medicine{}, fmt.Errorf("%w: medicine name is required", store.ErrValidation)
	}
	if req.UnitPriceCents < 1 {
		return domain.Medicine{}, fmt.Errorf("%w: unit price must be at least 1 cent", store.ErrValidation)
	}
	if req.Quantity < 0 {
		return domain.Medicine{}, fmt.Errorf("%w: quantity cannot be negative", store.ErrValidation)
	}

	now := time.Now().UTC()
	medicine := domain.Medicine{
		ID:             xid.New("med"),
		Name:           req.Name,
		UnitPriceCents: req.UnitPriceCents,
		Quantity:       req.Quantity,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := s.repo.CreateMedicine(ctx, medicine)
	if err != nil {
		return domain.Medicine{}, err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "medicine_create", "medicine", created.ID, fmt.Sprintf("name=%s,price=%d,qty=%d", created.Name, created.UnitPriceCents, created.Quantity))
	s.sink.Publish(events.Change{Entity: "medicine", ID: created.ID, Op: events.OpCreate})

	return *created, nil
}

func (s *Service) UpdateMedicine(ctx context.Context, id string, req domain.MedicineUpdateRequest) (domain.Medicine, []domain.LowStockEvent, error) {
	// Quantity-only updates are a stock adjustment, which cashiers may
	// do; touching name or price needs the full update capability.
	action := policy.ActionUpdate
	if req.Name == nil && req.UnitPriceCents == nil && req.Quantity != nil {
		action = policy.ActionAdjustStock
	}
	if _, err := s.authorize(ctx, policy.ResourceMedicine, action); err != nil {
		return domain.Medicine{}, nil, err
	}

	existing, err := s.repo.GetMedicineByID(ctx, id)
	if err != nil {
		return domain.Medicine{}, nil, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Medicine{}, nil, fmt.Errorf("%w: medicine name is required", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.UnitPriceCents != nil {
		if *req.UnitPriceCents < 1 {
			return domain.Medicine{}, nil, fmt.Errorf("%w: unit price must be at least 1 cent", store.ErrValidation)
		}
		updated.UnitPriceCents = *req.UnitPriceCents
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return domain.Medicine{}, nil, fmt.Errorf("%w: quantity cannot be negative", store.ErrValidation)
		}
		updated.Quantity = *req.Quantity
	}
	updated.UpdatedAt = time.Now().UTC()

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Medicine{}, nil, err
	}

	mutation, err := s.repo.UpdateMedicine(ctx, updated, settings.LowStockThreshold)
	if err != nil {
		return domain.Medicine{}, nil, err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "medicine_update", "medicine", mutation.Medicine.ID, fmt.Sprintf("name=%s,price=%d,qty=%d", mutation.Medicine.Name, mutation.Medicine.UnitPriceCents, mutation.Medicine.Quantity))
	s.sink.Publish(events.Change{Entity: "medicine", ID: mutation.Medicine.ID, Op: events.OpUpdate})
	s.dispatcher.LowStock(ctx, settings.AlertPhone, mutation.Crossings)

	return mutation.Medicine, mutation.Crossings, nil
}

func (s *Service) DeleteMedicine(ctx context.Context, id string) error {
	if _, err := s.authorize(ctx, policy.ResourceMedicine, policy.ActionDelete); err != nil {
		return err
	}
	if err := s.repo.DeleteMedicine(ctx, id); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "medicine_delete", "medicine", id, "")
	s.sink.Publish(events.Change{Entity: "medicine", ID: id, Op: events.OpDelete})
	return nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	if _, err := s.authorize(ctx, policy.ResourceSupplier, policy.ActionRead); err != nil {
		return nil, err
	}
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierCreateRequest) (domain.Supplier, error) {
	if _, err := s.authorize(ctx, policy.ResourceSupplier, policy.ActionCreate); err != nil {
		return domain.Supplier{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Supplier{}, fmt.Errorf("%w: supplier name is required", store.ErrValidation)
	}

	supplier := domain.Supplier{
		ID:            xid.New("sup"),
		Name:          req.Name,
		ContactPerson: strings.TrimSpace(req.ContactPerson),
		Phone:         strings.TrimSpace(req.Phone),
		Email:         strings.TrimSpace(req.Email),
		Company:       strings.TrimSpace(req.Company),
		Address:       strings.TrimSpace(req.Address),
		CreatedAt:     time.Now().UTC(),
	}

	created, err := s.repo.CreateSupplier(ctx, supplier)
	if err != nil {
		return domain.Supplier{}, err
	}

	s.logAudit(ctx, "supplier_create", "supplier", created.ID, fmt.Sprintf("name=%s", created.Name))
	s.sink.Publish(events.Change{Entity: "supplier", ID: created.ID, Op: events.OpCreate})
	return *created, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, id string, req domain.SupplierUpdateRequest) (domain.Supplier, error) {
	if _, err := s.authorize(ctx, policy.ResourceSupplier, policy.ActionUpdate); err != nil {
		return domain.Supplier{}, err
	}

	existing, err := s.repo.GetSupplierByID(ctx, id)
	if err != nil {
		return domain.Supplier{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Supplier{}, fmt.Errorf("%w: supplier name is required", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.ContactPerson != nil {
		updated.ContactPerson = strings.TrimSpace(*req.ContactPerson)
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		updated.Email = strings.TrimSpace(*req.Email)
	}
	if req.Company != nil {
		updated.Company = strings.TrimSpace(*req.Company)
	}
	if req.Address != nil {
		updated.Address = strings.TrimSpace(*req.Address)
	}

	saved, err := s.repo.UpdateSupplier(ctx, updated)
	if err != nil {
		return domain.Supplier{}, err
	}

	s.logAudit(ctx, "supplier_update", "supplier", saved.ID, fmt.Sprintf("name=%s", saved.Name))
	s.sink.Publish(events.Change{Entity: "supplier", ID: saved.ID, Op: events.OpUpdate})
	return *saved, nil
}

func (s *Service) DeleteSupplier(ctx context.Context, id string) error {
	if _, err := s.authorize(ctx, policy.ResourceSupplier, policy.ActionDelete); err != nil {
		return err
	}
	if err := s.repo.DeleteSupplier(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "supplier_delete", "supplier", id, "")
	s.sink.Publish(events.Change{Entity: "supplier", ID: id, Op: events.OpDelete})
	return nil
}

func (s *Service) ListIntakeBatches(ctx context.Context) ([]domain.IntakeBatch, error) {
	if _, err := s.authorize(ctx, policy.ResourceIntake, policy.ActionRead); err != nil {
		return nil, err
	}
	return s.repo.ListIntakeBatches(ctx)
}

func (s *Service) CreateIntakeBatch(ctx context.Context, req domain.IntakeBatchCreateRequest) (domain.IntakeBatch, error) {
	if _, err := s.authorize(ctx, policy.ResourceIntake, policy.ActionCreate); err != nil {
		return domain.IntakeBatch{}, err
	}

	req.ProductName = strings.TrimSpace(req.ProductName)
	req.BatchNumber = strings.TrimSpace(req.BatchNumber)
	if req.SupplierID == "" || req.ProductName == "" || req.BatchNumber == "" {
		return domain.IntakeBatch{}, fmt.Errorf("%w: supplier, product name and batch number are required", store.ErrValidation)
	}
	if req.Quantity < 1 {
		return domain.IntakeBatch{}, fmt.Errorf("%w: quantity must be positive", store.ErrValidation)
	}
	if req.UnitCostCents < 1 {
		return domain.IntakeBatch{}, fmt.Errorf("%w: unit cost must be at least 1 cent", store.ErrValidation)
	}

	expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		return domain.IntakeBatch{}, fmt.Errorf("%w: expiry date must be YYYY-MM-DD", store.ErrValidation)
	}
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !expiry.After(today) {
		return domain.IntakeBatch{}, fmt.Errorf("%w: expiry date must be in the future", store.ErrValidation)
	}

	batch := domain.IntakeBatch{
		ID:             xid.New("batch"),
		SupplierID:     req.SupplierID,
		ProductName:    req.ProductName,
		BatchNumber:    req.BatchNumber,
		Quantity:       req.Quantity,
		UnitCostCents:  req.UnitCostCents,
		TotalCostCents: int64(req.Quantity) * req.UnitCostCents,
		ExpiryDate:     expiry,
		CreatedAt:      now,
	}

	created, err := s.repo.CreateIntakeBatch(ctx, batch)
	if err != nil {
		return domain.IntakeBatch{}, err
	}

	s.logAudit(ctx, "intake_create", "intake_batch", created.ID, fmt.Sprintf("product=%s,qty=%d", created.ProductName, created.Quantity))
	s.sink.Publish(events.Change{Entity: "intake_batch", ID: created.ID, Op: events.OpCreate})
	return *created, nil
}

func (s *Service) DeleteIntakeBatch(ctx context.Context, id string) error {
	if _, err := s.authorize(ctx, policy.ResourceIntake, policy.ActionDelete); err != nil {
		return err
	}
	if err := s.repo.DeleteIntakeBatch(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "intake_delete", "intake_batch", id, "")
	s.sink.Publish(events.Change{Entity: "intake_batch", ID: id, Op: events.OpDelete})
	return nil
}

// SyncIntakeBatch moves units from an intake batch into the inventory.
// The store layer guarantees a single medicine row per product name under
// concurrent syncs.
func (s *Service) SyncIntakeBatch(ctx context.Context, batchID string, req domain.IntakeSyncRequest) (domain.IntakeSyncResponse, error) {
	if _, err := s.authorize(ctx, policy.ResourceIntake, policy.ActionSync); err != nil {
		return domain.IntakeSyncResponse{}, err
	}
	if req.Quantity < 1 {
		return domain.IntakeSyncResponse{}, fmt.Errorf("%w: sync quantity must be positive", store.ErrValidation)
	}

	mutation, err := s.repo.SyncIntakeBatch(ctx, batchID, req.Quantity, time.Now().UTC())
	if err != nil {
		return domain.IntakeSyncResponse{}, err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "intake_sync", "intake_batch", batchID, fmt.Sprintf("product=%s,qty=%d,created=%t", mutation.Batch.ProductName, req.Quantity, mutation.Created))
	s.sink.Publish(events.Change{Entity: "medicine", ID: mutation.Medicine.ID, Op: events.OpUpdate})

	return domain.IntakeSyncResponse{
		Batch:    mutation.Batch,
		Medicine: mutation.Medicine,
		Created:  mutation.Created,
	}, nil
}

// Checkout records one sale atomically: every cart line is honored or the
// whole sale is rejected. Notifications go out only after the store
// committed, and their failures never reach the caller.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	actor, err := s.authorize(ctx, policy.ResourceSale, policy.ActionCreate)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	if len(req.CartLines) == 0 {
		return domain.CheckoutResponse{}, store.ErrEmptyCart
	}
	if !domain.IsSupportedPaymentMethod(req.PaymentMethod) {
		return domain.CheckoutResponse{}, fmt.Errorf("%w: unsupported payment method %q", store.ErrValidation, req.PaymentMethod)
	}
	for _, line := range req.CartLines {
		if line.MedicineID == "" {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: cart line missing medicine id", store.ErrValidation)
		}
		if line.Qty < 1 {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: cart line quantity must be positive", store.ErrValidation)
		}
	}

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	items := make([]domain.SaleItem, 0, len(req.CartLines))
	for _, line := range req.CartLines {
		items = append(items, domain.SaleItem{MedicineID: line.MedicineID, Qty: line.Qty})
	}

	sale := domain.Sale{
		ID:              xid.New("sale"),
		CashierUsername: actor.Username,
		PaymentMethod:   req.PaymentMethod,
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		Items:           items,
	}

	mutation, err := s.repo.CreateSale(ctx, sale, settings.LowStockThreshold, time.Now().UTC())
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "sale_create", "sale", mutation.Sale.ID, fmt.Sprintf("number=%s,total=%d,items=%d", mutation.Sale.SaleNumber, mutation.Sale.TotalAmountCents, len(mutation.Sale.Items)))
	s.sink.Publish(events.Change{Entity: "sale", ID: mutation.Sale.ID, Op: events.OpCreate})
	for _, crossing := range mutation.Crossings {
		s.sink.Publish(events.Change{Entity: "medicine", ID: crossing.MedicineID, Op: events.OpUpdate})
	}

	s.dispatcher.SaleRecorded(ctx, settings.AlertPhone, mutation.Sale)
	s.dispatcher.LowStock(ctx, settings.AlertPhone, mutation.Crossings)

	return domain.CheckoutResponse{Sale: mutation.Sale, ItemCount: len(mutation.Sale.Items)}, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	actor, err := s.authorize(ctx, policy.ResourceSale, policy.ActionRead)
	if err != nil {
		return domain.Sale{}, err
	}

	sale, err := s.repo.GetSaleByID(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	// Another cashier's sale is indistinguishable from a missing one.
	if actor.Role != domain.RoleAdmin && sale.CashierUsername != actor.Username {
		return domain.Sale{}, store.ErrNotFound
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	actor, err := s.authorize(ctx, policy.ResourceSale, policy.ActionRead)
	if err != nil {
		return nil, err
	}

	cashier := ""
	if actor.Role != domain.RoleAdmin {
		cashier = actor.Username
	}
	return s.repo.ListSales(ctx, cashier, limit)
}

func (s *Service) GetDailyReport(ctx context.Context, date string) (domain.DailyReport, error) {
	if _, err := s.authorize(ctx, policy.ResourceReport, policy.ActionRead); err != nil {
		return domain.DailyReport{}, err
	}

	var day time.Time
	if date == "" {
		now := time.Now().UTC()
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return domain.DailyReport{}, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrValidation)
		}
		day = parsed
	}

	return s.repo.GetDailyReport(ctx, day, day.Add(24*time.Hour))
}

func (s *Service) GetSettings(ctx context.Context) (domain.Settings, error) {
	if _, err := s.authorize(ctx, policy.ResourceSettings, policy.ActionRead); err != nil {
		return domain.Settings{}, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	return *settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (domain.Settings, error) {
	if _, err := s.authorize(ctx, policy.ResourceSettings, policy.ActionUpdate); err != nil {
		return domain.Settings{}, err
	}

	existing, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}

	updated := *existing
	if req.AlertPhone != nil {
		updated.AlertPhone = strings.TrimSpace(*req.AlertPhone)
	}
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			return domain.Settings{}, fmt.Errorf("%w: threshold cannot be negative", store.ErrValidation)
		}
		updated.LowStockThreshold = *req.LowStockThreshold
	}
	updated.UpdatedAt = time.Now().UTC()

	saved, err := s.repo.UpdateSettings(ctx, updated)
	if err != nil {
		return domain.Settings{}, err
	}

	s.logAudit(ctx, "settings_update", "settings", "", fmt.Sprintf("threshold=%d", saved.LowStockThreshold))
	s.sink.Publish(events.Change{Entity: "settings", ID: "1", Op: events.OpUpdate})
	return *saved, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if _, err := s.authorize(ctx, policy.ResourceAudit, policy.ActionRead); err != nil {
		return nil, err
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(time.Minute)
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

// Authenticate verifies a username/password pair against the credential
// store. It returns the same error for unknown users, inactive accounts
// and wrong passwords.
func (s *Service) Authenticate(ctx context.Context, username string, password string) (domain.Actor, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("invalid credentials")
	}
	if !user.Active {
		return domain.Actor{}, fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return domain.Actor{}, fmt.Errorf("invalid credentials")
	}
	return domain.Actor{Username: user.Username, Role: user.Role}, nil
}

func (s *Service) CreateCashier(ctx context.Context, req domain.CashierCreateRequest) (domain.CashierUser, error) {
	if _, err := s.authorize(ctx, policy.ResourceUser, policy.ActionCreate); err != nil {
		return domain.CashierUser{}, err
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return domain.CashierUser{}, fmt.Errorf("%w: username is required", store.ErrValidation)
	}
	if len(req.Password) < 8 {
		return domain.CashierUser{}, fmt.Errorf("%w: password must be at least 8 characters", store.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.CashierUser{}, err
	}

	user := domain.UserAccount{
		Username:  req.Username,
		Password:  string(hash),
		Role:      domain.RoleCashier,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.CashierUser{}, err
	}

	s.logAudit(ctx, "cashier_create", "user", user.Username, "")
	return domain.CashierUser{
		Username:  user.Username,
		Role:      user.Role,
		Active:    user.Active,
		CreatedAt: user.CreatedAt,
	}, nil
}

func (s *Service) ListCashiers(ctx context.Context) ([]domain.CashierUser, error) {
	if _, err := s.authorize(ctx, policy.ResourceUser, policy.ActionRead); err != nil {
		return nil, err
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	cashiers := make([]domain.CashierUser, 0, len(users))
	for _, user := range users {
		if user.Role != domain.RoleCashier {
			continue
		}
		cashiers = append(cashiers, domain.CashierUser{
			Username:  user.Username,
			Role:      user.Role,
			Active:    user.Active,
			CreatedAt: user.CreatedAt,
		})
	}
	return cashiers, nil
}

// UpdateCredentials rewrites a user's username and password in one store
// call, looked up by the old username.
func (s *Service) UpdateCredentials(ctx context.Context, req domain.CredentialUpdateRequest) error {
	if _, err := s.authorize(ctx, policy.ResourceUser, policy.ActionUpdate); err != nil {
		return err
	}

	req.OldUsername = strings.TrimSpace(req.OldUsername)
	req.NewUsername = strings.TrimSpace(req.NewUsername)
	if req.OldUsername == "" || req.NewUsername == "" {
		return fmt.Errorf("%w: old and new usernames are required", store.ErrValidation)
	}
	if len(req.NewPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", store.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateUserCredentials(ctx, req.OldUsername, req.NewUsername, string(hash)); err != nil {
		return err
	}

	s.logAudit(ctx, "credentials_update", "user", req.NewUsername, fmt.Sprintf("old=%s", req.OldUsername))
	return nil
}

func (s *Service) invalidateCatalog(ctx context.Context) {
	if err := s.catalog.Invalidate(ctx, catalogCacheKey); err != nil {
		log.Printf("[service] WARN: catalog cache invalidation failed: %v", err)
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[service] WARN: failed to write audit log action=%s: %v", action, err)
	}
}
