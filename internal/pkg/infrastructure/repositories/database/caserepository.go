package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/frankss230/AFE-plus-2/pkg/types"

	"gorm.io/gorm"
)

var ErrCaseNotFound = fmt.Errorf("case not found")
var ErrCaseAlreadyOpen = fmt.Errorf("an open case already exists for this pair")
var ErrAlreadyReceived = fmt.Errorf("case has already been received")
var ErrAlreadyClosed = fmt.Errorf("case has already been closed")
var ErrNotYetReceived = fmt.Errorf("case has not been received yet")

type CaseRepository interface {
	GetByID(ctx context.Context, caseID string) (types.Case, error)
	GetOpen(ctx context.Context, pair types.Pair) (types.Case, error)
	GetAll(ctx context.Context, onlyOpen bool) ([]types.Case, error)

	Add(ctx context.Context, c types.Case) error
	Receive(ctx context.Context, caseID, actorID string, at time.Time) (types.Case, error)
	Close(ctx context.Context, caseID, actorID string, at time.Time) (types.Case, error)
}

type caseRepository struct {
	db *gorm.DB
}

func NewCaseRepository(connect ConnectorFunc) (CaseRepository, error) {
	impl, err := connect()
	if err != nil {
		return nil, err
	}

	err = impl.AutoMigrate(&HelpCase{})
	if err != nil {
		return nil, err
	}

	return &caseRepository{db: impl}, nil
}

func (r *caseRepository) GetByID(ctx context.Context, caseID string) (types.Case, error) {
	h := HelpCase{}

	err := r.db.WithContext(ctx).
		Where(&HelpCase{ID: caseID}).
		First(&h).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.Case{}, ErrCaseNotFound
		}
		return types.Case{}, err
	}

	return h.toType(), nil
}

func (r *caseRepository) GetOpen(ctx context.Context, pair types.Pair) (types.Case, error) {
	h := HelpCase{}

	err := r.db.WithContext(ctx).
		Where("caretaker_id = ? AND dependent_id = ? AND closed_at IS NULL", pair.CaretakerID, pair.DependentID).
		Order("created_at DESC").
		First(&h).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.Case{}, ErrCaseNotFound
		}
		return types.Case{}, err
	}

	return h.toType(), nil
}

func (r *caseRepository) GetAll(ctx context.Context, onlyOpen bool) ([]types.Case, error) {
	var rows []HelpCase

	query := r.db.WithContext(ctx).Order("created_at DESC")
	if onlyOpen {
		query = query.Where("closed_at IS NULL")
	}

	err := query.Find(&rows).Error
	if err != nil {
		return nil, err
	}

	cases := make([]types.Case, 0, len(rows))
	for _, h := range rows {
		cases = append(cases, h.toType())
	}

	return cases, nil
}

func (r *caseRepository) Add(ctx context.Context, c types.Case) error {
	h := newHelpCase(c)

	err := r.db.WithContext(ctx).
		Create(&h).
		Error

	if err != nil && isUniqueViolation(err) {
		return ErrCaseAlreadyOpen
	}

	return err
}

// Receive sets the receiver on a case with compare-and-set semantics. The
// first acceptor wins, every later call gets ErrAlreadyReceived.
func (r *caseRepository) Receive(ctx context.Context, caseID, actorID string, at time.Time) (types.Case, error) {
	result := r.db.WithContext(ctx).
		Model(&HelpCase{}).
		Where("id = ? AND received_at IS NULL AND closed_at IS NULL", caseID).
		Updates(map[string]any{
			"receiver_id": actorID,
			"received_at": at,
		})

	if result.Error != nil {
		return types.Case{}, result.Error
	}

	if result.RowsAffected == 0 {
		existing, err := r.GetByID(ctx, caseID)
		if err != nil {
			return types.Case{}, err
		}
		if existing.ClosedAt != nil {
			return types.Case{}, ErrAlreadyClosed
		}
		return types.Case{}, ErrAlreadyReceived
	}

	return r.GetByID(ctx, caseID)
}

// Close sets the closer on a case with compare-and-set semantics. A case
// that has not been received cannot be closed.
func (r *caseRepository) Close(ctx context.Context, caseID, actorID string, at time.Time) (types.Case, error) {
	result := r.db.WithContext(ctx).
		Model(&HelpCase{}).
		Where("id = ? AND closed_at IS NULL AND received_at IS NOT NULL", caseID).
		Updates(map[string]any{
			"closer_id": actorID,
			"closed_at": at,
		})

	if result.Error != nil {
		return types.Case{}, result.Error
	}

	if result.RowsAffected == 0 {
		existing, err := r.GetByID(ctx, caseID)
		if err != nil {
			return types.Case{}, err
		}
		if existing.ClosedAt != nil {
			return types.Case{}, ErrAlreadyClosed
		}
		return types.Case{}, ErrNotYetReceived
	}

	return r.GetByID(ctx, caseID)
}

// isUniqueViolation matches on the driver error messages, covering both the
// sqlite and the postgres wording.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
