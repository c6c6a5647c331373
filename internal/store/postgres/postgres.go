package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/254Kioko/chemist-mgs/internal/domain"
	"github.com/254Kioko/chemist-mgs/internal/store"
	"github.com/254Kioko/chemist-mgs/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListMedicines(ctx context.Context) ([]domain.Medicine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, unit_price_cents, quantity, created_at, updated_at
		FROM medicines
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	medicines := make([]domain.Medicine, 0, 128)
	for rows.Next() {
		var m domain.Medicine
		if err := rows.Scan(&m.ID, &m.Name, &m.UnitPriceCents, &m.Quantity, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		medicines = append(medicines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return medicines, nil
}

func (s *Store) GetMedicineByID(ctx context.Context, id string) (*domain.Medicine, error) {
	var m domain.Medicine
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, unit_price_cents, quantity, created_at, updated_at
		FROM medicines
		WHERE id = $1
	`, id).Scan(&m.ID, &m.Name, &m.UnitPriceCents, &m.Quantity, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *Store) CreateMedicine(ctx context.Context, medicine domain.Medicine) (*domain.Medicine, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO medicines (id, name, unit_price_cents, quantity, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, medicine.ID, medicine.Name, medicine.UnitPriceCents, medicine.Quantity, medicine.CreatedAt, medicine.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: medicine %q already exists", store.ErrConflict, medicine.Name)
		}
		return nil, err
	}

	created := medicine
	return &created, nil
}

func (s *Store) UpdateMedicine(ctx context.Context, medicine domain.Medicine, threshold int) (*store.MedicineMutation, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var before int
	err = tx.QueryRowContext(ctx, `
		SELECT quantity
		FROM medicines
		WHERE id = $1
		FOR UPDATE
	`, medicine.ID).Scan(&before)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE medicines
		SET name = $2, unit_price_cents = $3, quantity = $4, updated_at = $5
		WHERE id = $1
	`, medicine.ID, medicine.Name, medicine.UnitPriceCents, medicine.Quantity, medicine.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: medicine %q already exists", store.ErrConflict, medicine.Name)
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	mutation := &store.MedicineMutation{Medicine: medicine}
	if before >= threshold && medicine.Quantity < threshold {
		mutation.Crossings = append(mutation.Crossings, domain.LowStockEvent{
			MedicineID: medicine.ID,
			Name:       medicine.Name,
			Quantity:   medicine.Quantity,
		})
	}
	return mutation, nil
}

func (s *Store) DeleteMedicine(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var referenced bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM sale_items WHERE medicine_id = $1)
	`, id).Scan(&referenced)
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("%w: medicine is referenced by recorded sales", store.ErrConflict)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM medicines WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: medicine is referenced by recorded sales", store.ErrConflict)
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	return tx.Commit()
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, contact_person, phone, email, company, address, created_at
		FROM suppliers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, 32)
	for rows.Next() {
		var sup domain.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.ContactPerson, &sup.Phone, &sup.Email, &sup.Company, &sup.Address, &sup.CreatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return suppliers, nil
}

func (s *Store) GetSupplierByID(ctx context.Context, id string) (*domain.Supplier, error) {
	var sup domain.Supplier
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, contact_person, phone, email, company, address, created_at
		FROM suppliers
		WHERE id = $1
	`, id).Scan(&sup.ID, &sup.Name, &sup.ContactPerson, &sup.Phone, &sup.Email, &sup.Company, &sup.Address, &sup.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &sup, nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, contact_person, phone, email, company, address, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, supplier.ID, supplier.Name, supplier.ContactPerson, supplier.Phone, supplier.Email, supplier.Company, supplier.Address, supplier.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := supplier
	return &created, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE suppliers
		SET name = $2, contact_person = $3, phone = $4, email = $5, company = $6, address = $7
		WHERE id = $1
	`, supplier.ID, supplier.Name, supplier.ContactPerson, supplier.Phone, supplier.Email, supplier.Company, supplier.Address)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := supplier
	return &updated, nil
}

func (s *Store) DeleteSupplier(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListIntakeBatches(ctx context.Context) ([]domain.IntakeBatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, supplier_id, product_name, batch_number, quantity, unit_cost_cents, total_cost_cents, expiry_date, created_at
		FROM intake_batches
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches := make([]domain.IntakeBatch, 0, 64)
	for rows.Next() {
		var b domain.IntakeBatch
		if err := rows.Scan(&b.ID, &b.SupplierID, &b.ProductName, &b.BatchNumber, &b.Quantity, &b.UnitCostCents, &b.TotalCostCents, &b.ExpiryDate, &b.CreatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return batches, nil
}

func (s *Store) GetIntakeBatchByID(ctx context.Context, id string) (*domain.IntakeBatch, error) {
	var b domain.IntakeBatch
	err := s.db.QueryRowContext(ctx, `
		SELECT id, supplier_id, product_name, batch_number, quantity, unit_cost_cents, total_cost_cents, expiry_date, created_at
		FROM intake_batches
		WHERE id = $1
	`, id).Scan(&b.ID, &b.SupplierID, &b.ProductName, &b.BatchNumber, &b.Quantity, &b.UnitCostCents, &b.TotalCostCents, &b.ExpiryDate, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *Store) CreateIntakeBatch(ctx context.Context, batch domain.IntakeBatch) (*domain.IntakeBatch, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO intake_batches (id, supplier_id, product_name, batch_number, quantity, unit_cost_cents, total_cost_cents, expiry_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, batch.ID, batch.SupplierID, batch.ProductName, batch.BatchNumber, batch.Quantity, batch.UnitCostCents, batch.TotalCostCents, batch.ExpiryDate, batch.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: supplier %q", store.ErrNotFound, batch.SupplierID)
		}
		return nil, err
	}

	created := batch
	return &created, nil
}

func (s *Store) DeleteIntakeBatch(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM intake_batches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SyncIntakeBatch moves qty units from an intake batch into the medicine
// inventory. The unique index on medicines.name makes concurrent syncs of
// the same product converge on one row instead of inserting duplicates.
func (s *Store) SyncIntakeBatch(ctx context.Context, batchID string, qty int, now time.Time) (*store.SyncMutation, error) {
	if qty < 1 {
		return nil, fmt.Errorf("%w: sync quantity must be positive", store.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var batch domain.IntakeBatch
	err = tx.QueryRowContext(ctx, `
		SELECT id, supplier_id, product_name, batch_number, quantity, unit_cost_cents, total_cost_cents, expiry_date, created_at
		FROM intake_batches
		WHERE id = $1
		FOR UPDATE
	`, batchID).Scan(&batch.ID, &batch.SupplierID, &batch.ProductName, &batch.BatchNumber, &batch.Quantity, &batch.UnitCostCents, &batch.TotalCostCents, &batch.ExpiryDate, &batch.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if qty > batch.Quantity {
		return nil, fmt.Errorf("%w: batch %q has only %d unit(s) remaining", store.ErrInsufficientStock, batch.ProductName, batch.Quantity)
	}

	mutation := &store.SyncMutation{}
	newID := xid.New("med")
	res, err := tx.ExecContext(ctx, `
		INSERT INTO medicines (id, name, unit_price_cents, quantity, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$5)
		ON CONFLICT (name) DO NOTHING
	`, newID, batch.ProductName, batch.UnitCostCents, qty, now)
	if err != nil {
		return nil, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if inserted == 0 {
		err = tx.QueryRowContext(ctx, `
			UPDATE medicines
			SET quantity = quantity + $2, updated_at = $3
			WHERE name = $1
			RETURNING id, name, unit_price_cents, quantity, created_at, updated_at
		`, batch.ProductName, qty, now).Scan(&mutation.Medicine.ID, &mutation.Medicine.Name, &mutation.Medicine.UnitPriceCents, &mutation.Medicine.Quantity, &mutation.Medicine.CreatedAt, &mutation.Medicine.UpdatedAt)
		if err != nil {
			return nil, err
		}
	} else {
		mutation.Created = true
		mutation.Medicine = domain.Medicine{
			ID:             newID,
			Name:           batch.ProductName,
			UnitPriceCents: batch.UnitCostCents,
			Quantity:       qty,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE intake_batches
		SET quantity = quantity - $2
		WHERE id = $1
		RETURNING quantity
	`, batchID, qty).Scan(&batch.Quantity)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	mutation.Batch = batch
	return mutation, nil
}

// CreateSale runs the whole checkout in one serializable transaction:
// row locks on the cart's medicines, stock verification, day-scoped sale
// number allocation, sale and item inserts, stock decrements. The unique
// index on sales.sale_number backstops the counter.
func (s *Store) CreateSale(ctx context.Context, sale domain.Sale, threshold int, now time.Time) (*store.SaleMutation, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrEmptyCart
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	ids := uniqueMedicineIDs(sale.Items)
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, unit_price_cents, quantity
		FROM medicines
		WHERE id = ANY($1)
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	medicineMap := make(map[string]domain.Medicine, len(ids))
	for rows.Next() {
		var m domain.Medicine
		if err := rows.Scan(&m.ID, &m.Name, &m.UnitPriceCents, &m.Quantity); err != nil {
			_ = rows.Close()
			return nil, err
		}
		medicineMap[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	var total int64
	var crossings []domain.LowStockEvent
	items := make([]domain.SaleItem, 0, len(sale.Items))
	for _, item := range sale.Items {
		if item.Qty < 1 {
			return nil, fmt.Errorf("%w: quantity for %q must be positive", store.ErrValidation, item.MedicineID)
		}
		m, exists := medicineMap[item.MedicineID]
		if !exists {
			return nil, fmt.Errorf("%w: medicine %q", store.ErrNotFound, item.MedicineID)
		}
		if item.Qty > m.Quantity {
			return nil, fmt.Errorf("%w: %q has %d unit(s) available, %d requested", store.ErrInsufficientStock, m.Name, m.Quantity, item.Qty)
		}

		before := m.Quantity
		m.Quantity -= item.Qty
		medicineMap[m.ID] = m

		_, err = tx.ExecContext(ctx, `
			UPDATE medicines
			SET quantity = quantity - $2, updated_at = $3
			WHERE id = $1
		`, m.ID, item.Qty, now)
		if err != nil {
			return nil, err
		}

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
	var counter int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO sale_counters (day, counter)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET counter = sale_counters.counter + 1
		RETURNING counter
	`, day).Scan(&counter)
	if err != nil {
		return nil, err
	}

	sale.SaleNumber = fmt.Sprintf("SALE-%s-%04d", day, counter)
	sale.TotalAmountCents = total
	sale.Items = items
	sale.CreatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, sale_number, cashier_username, total_amount_cents, payment_method, customer_name, customer_phone, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, sale.ID, sale.SaleNumber, sale.CashierUsername, sale.TotalAmountCents, sale.PaymentMethod,
		nullIfEmpty(sale.CustomerName), nullIfEmpty(sale.CustomerPhone), sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: sale number %s already allocated", store.ErrConflict, sale.SaleNumber)
		}
		return nil, err
	}

	for _, item := range sale.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, medicine_id, medicine_name, qty, unit_price_cents, total_price_cents)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, sale.ID, item.MedicineID, item.MedicineName, item.Qty, item.UnitPriceCents, item.TotalPriceCents)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &store.SaleMutation{Sale: sale, Crossings: crossings}, nil
}

func (s *Store) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	var customerName, customerPhone sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sale_number, cashier_username, total_amount_cents, payment_method, customer_name, customer_phone, created_at
		FROM sales
		WHERE id = $1
	`, id).Scan(&sale.ID, &sale.SaleNumber, &sale.CashierUsername, &sale.TotalAmountCents, &sale.PaymentMethod, &customerName, &customerPhone, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.CustomerName = customerName.String
	sale.CustomerPhone = customerPhone.String

	rows, err := s.db.QueryContext(ctx, `
		SELECT medicine_id, medicine_name, qty, unit_price_cents, total_price_cents
		FROM sale_items
		WHERE sale_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.MedicineID, &item.MedicineName, &item.Qty, &item.UnitPriceCents, &item.TotalPriceCents); err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, cashierUsername string, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_number, cashier_username, total_amount_cents, payment_method, customer_name, customer_phone, created_at
		FROM sales
		WHERE ($1 = '' OR cashier_username = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, cashierUsername, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	for rows.Next() {
		var sale domain.Sale
		var customerName, customerPhone sql.NullString
		if err := rows.Scan(&sale.ID, &sale.SaleNumber, &sale.CashierUsername, &sale.TotalAmountCents, &sale.PaymentMethod, &customerName, &customerPhone, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.CustomerName = customerName.String
		sale.CustomerPhone = customerPhone.String
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sales, nil
}

func (s *Store) GetDailyReport(ctx context.Context, from time.Time, to time.Time) (domain.DailyReport, error) {
	report := domain.DailyReport{Date: from.UTC().Format("2006-01-02")}

	rows, err := s.db.QueryContext(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(total_amount_cents), 0)
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY payment_method
		ORDER BY payment_method
	`, from, to)
	if err != nil {
		return report, err
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.DailyReportPayment
		if err := rows.Scan(&entry.PaymentMethod, &entry.Sales, &entry.TotalCents); err != nil {
			return report, err
		}
		report.Sales += entry.Sales
		report.GrossSalesCents += entry.TotalCents
		report.ByPayment = append(report.ByPayment, entry)
	}
	if err := rows.Err(); err != nil {
		return report, err
	}

	return report, nil
}

func (s *Store) GetSettings(ctx context.Context) (*domain.Settings, error) {
	var settings domain.Settings
	var alertPhone sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT alert_phone, low_stock_threshold, updated_at
		FROM settings
		WHERE id = 1
	`).Scan(&alertPhone, &settings.LowStockThreshold, &settings.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.Settings{LowStockThreshold: domain.DefaultLowStockThreshold}, nil
		}
		return nil, err
	}
	settings.AlertPhone = alertPhone.String
	return &settings, nil
}

func (s *Store) UpdateSettings(ctx context.Context, settings domain.Settings) (*domain.Settings, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, alert_phone, low_stock_threshold, updated_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET alert_phone = $1, low_stock_threshold = $2, updated_at = $3
	`, nullIfEmpty(settings.AlertPhone), settings.LowStockThreshold, settings.UpdatedAt)
	if err != nil {
		return nil, err
	}

	updated := settings
	return &updated, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, nullIfEmpty(entry.EntityID), nullIfEmpty(entry.Detail), entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		var entityID, detail sql.NullString
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entityID, &detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.EntityID = entityID.String
		entry.Detail = detail.String
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return logs, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		WHERE username = $1
	`, username).Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username %q is taken", store.ErrConflict, user.Username)
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (s *Store) UpdateUserCredentials(ctx context.Context, oldUsername string, newUsername string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET username = $2, password = $3
		WHERE username = $1
	`, oldUsername, newUsername, password)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username %q is taken", store.ErrConflict, newUsername)
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func uniqueMedicineIDs(items []domain.SaleItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.MedicineID]; ok {
			continue
		}
		seen[item.MedicineID] = struct{}{}
		ids = append(ids, item.MedicineID)
	}
	sort.Strings(ids)
	return ids
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
