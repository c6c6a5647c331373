package store

import (
	"context"
	"errors"
	"time"

	"github.com/254Kioko/chemist-mgs/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("empty cart")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("not permitted")
)

// SaleMutation is the outcome of a committed checkout transaction. Crossings
// holds the low-stock threshold crossings observed while decrementing stock;
// they are only populated when the whole transaction committed.
type SaleMutation struct {
	Sale      domain.Sale
	Crossings []domain.LowStockEvent
}

// MedicineMutation pairs an updated medicine with any threshold crossing
// the write caused.
type MedicineMutation struct {
	Medicine  domain.Medicine
	Crossings []domain.LowStockEvent
}

// SyncMutation is the outcome of moving intake units into the medicine store.
type SyncMutation struct {
	Batch    domain.IntakeBatch
	Medicine domain.Medicine
	Created  bool
}

type Repository interface {
	ListMedicines(ctx context.Context) ([]domain.Medicine, error)
	GetMedicineByID(ctx context.Context, id string) (*domain.Medicine, error)
	CreateMedicine(ctx context.Context, medicine domain.Medicine) (*domain.Medicine, error)
	UpdateMedicine(ctx context.Context, medicine domain.Medicine, threshold int) (*MedicineMutation, error)
	DeleteMedicine(ctx context.Context, id string) error

	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	GetSupplierByID(ctx context.Context, id string) (*domain.Supplier, error)
	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	DeleteSupplier(ctx context.Context, id string) error

	ListIntakeBatches(ctx context.Context) ([]domain.IntakeBatch, error)
	GetIntakeBatchByID(ctx context.Context, id string) (*domain.IntakeBatch, error)
	CreateIntakeBatch(ctx context.Context, batch domain.IntakeBatch) (*domain.IntakeBatch, error)
	DeleteIntakeBatch(ctx context.Context, id string) error
	SyncIntakeBatch(ctx context.Context, batchID string, qty int, now time.Time) (*SyncMutation, error)

	CreateSale(ctx context.Context, sale domain.Sale, threshold int, now time.Time) (*SaleMutation, error)
	GetSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, cashierUsername string, limit int) ([]domain.Sale, error)
	GetDailyReport(ctx context.Context, from time.Time, to time.Time) (domain.DailyReport, error)

	GetSettings(ctx context.Context) (*domain.Settings, error)
	UpdateSettings(ctx context.Context, settings domain.Settings) (*domain.Settings, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserCredentials(ctx context.Context, oldUsername string, newUsername string, password string) error
}
