package executor

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Executor runs a script as one unit.
type Executor interface {
	Execute(ctx context.Context, script []string) error
}

// ScriptError reports the statement a script stopped at.
type ScriptError struct {
	// Index is the zero-based position of the failing statement.
	Index     int
	Statement string
	Err       error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("statement %d [%s] failed: %v", e.Index+1, e.Statement, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// GormExecutor runs scripts through a gorm connection inside a transaction.
// Products that commit DDL implicitly (MySQL) cannot roll it back; callers
// treat any failure as leaving the database in an unknown state.
type GormExecutor struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New creates an executor on db.
func New(db *gorm.DB, logger *zap.Logger) *GormExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormExecutor{db: db, logger: logger}
}

// Execute runs the statements in order, stopping at the first failure.
func (e *GormExecutor) Execute(ctx context.Context, script []string) error {
	if len(script) == 0 {
		return nil
	}
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, statement := range script {
			if err := tx.Exec(statement).Error; err != nil {
				e.logger.Warn("Statement failed",
					zap.Int("index", i),
					zap.String("sql", statement),
					zap.Error(err),
				)
				return &ScriptError{Index: i, Statement: statement, Err: err}
			}
		}
		return nil
	})
}
