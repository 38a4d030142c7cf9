// Package session implements the session/transaction orchestrator (C13):
// the NoDB -> WithDb -> WithTx state machine that owns one substrate
// connection and at most one in-flight transaction, and routes parsed
// commands to the catalog (DDL) or planner/executor (DML/Query).
package session

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/kasugasql/immutaschema/pkg/catalog"
	"github.com/kasugasql/immutaschema/pkg/errs"
	"github.com/kasugasql/immutaschema/pkg/executor"
	"github.com/kasugasql/immutaschema/pkg/executor/operators"
	"github.com/kasugasql/immutaschema/pkg/parser"
	"github.com/kasugasql/immutaschema/pkg/planner"
	"github.com/kasugasql/immutaschema/pkg/substrate"
)

// State is one node of §4.9's state machine.
type State string

const (
	NoDB   State = "NO_DB"
	WithDb State = "WITH_DB"
	WithTx State = "WITH_TX"
)

// Session owns one substrate connection and routes commands through it.
// Not safe for concurrent use by multiple goroutines (§5's "single-threaded
// cooperative per session" scheduling model).
type Session struct {
	ID      uuid.UUID
	state   State
	logger  *log.Logger
	timeout time.Duration

	sub  *substrate.Substrate
	cat  *catalog.Catalog
	ad   *parser.Adapter
	exec executor.Executor

	tx       *substrate.Tx
	txID     ulid.ULID
	cancelTx context.CancelFunc
}

// New creates a session in state NoDB. logger may be nil (defaults to
// log.Default()); timeout bounds every transaction's lifetime (§5).
func New(logger *log.Logger, timeout time.Duration) *Session {
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		ID:      uuid.New(),
		state:   NoDB,
		logger:  logger,
		timeout: timeout,
		ad:      parser.NewAdapter(),
		exec:    executor.NewExecutor(),
	}
}

// State returns the session's current state machine node.
func (s *Session) State() State { return s.state }

// UseDatabase opens the substrate and moves NoDB -> WithDb.
func (s *Session) UseDatabase(ctx context.Context, driver substrate.Driver, dsn string) error {
	if s.state != NoDB {
		return errs.NewInvalidTransactionState("UseDatabase requires state NoDB, session is %s", s.state)
	}
	sub, err := substrate.Open(ctx, driver, dsn, s.logger)
	if err != nil {
		return err
	}
	s.sub = sub
	s.cat = catalog.New()
	s.state = WithDb
	s.logger.Printf("session %s: NoDB -> WithDb (%s)", s.ID, driver)
	return nil
}

// Begin opens a transaction and moves WithDb -> WithTx.
func (s *Session) Begin(ctx context.Context) error {
	if s.state != WithDb {
		return errs.NewInvalidTransactionState("BEGIN requires state WithDb, session is %s", s.state)
	}
	txCtx, cancel := context.WithTimeout(ctx, s.timeout)
	tx, err := s.sub.Begin(txCtx)
	if err != nil {
		cancel()
		return err
	}
	s.tx = tx
	s.txID = ulid.Make()
	s.cancelTx = cancel
	s.state = WithTx
	s.logger.Printf("session %s: WithDb -> WithTx (txn %s)", s.ID, s.txID)
	return nil
}

// Commit commits the open transaction and moves WithTx -> WithDb.
func (s *Session) Commit() error {
	if s.state != WithTx {
		return errs.NewInvalidTransactionState("COMMIT requires state WithTx, session is %s", s.state)
	}
	err := s.tx.Commit()
	s.endTx()
	if err != nil {
		return translateTxError(err)
	}
	s.logger.Printf("session %s: WithTx -> WithDb (commit)", s.ID)
	return nil
}

// Abort rolls back the open transaction and moves WithTx -> WithDb.
func (s *Session) Abort() error {
	if s.state != WithTx {
		return errs.NewInvalidTransactionState("ABORT requires state WithTx, session is %s", s.state)
	}
	err := s.tx.Rollback()
	s.endTx()
	if err != nil {
		return translateTxError(err)
	}
	s.logger.Printf("session %s: WithTx -> WithDb (abort)", s.ID)
	return nil
}

func (s *Session) endTx() {
	s.tx = nil
	if s.cancelTx != nil {
		s.cancelTx()
		s.cancelTx = nil
	}
	s.state = WithDb
}

func translateTxError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.NewDeadlockDetected("transaction exceeded its timeout")
	}
	return err
}

// Close releases the session's substrate connection. A transaction left
// open when Close is called is itself dropped (§4.9's "a session that
// fails to end its transaction is itself dropped").
func (s *Session) Close() error {
	if s.cancelTx != nil {
		s.cancelTx()
	}
	if s.sub == nil {
		return nil
	}
	return s.sub.Close()
}

// Execute parses and runs one SQL statement. DDL statements (CREATE/ALTER/
// DROP TABLE) are applied straight through the Catalog; DML/Query
// statements are lowered to a plan and run through the executor. Both
// paths require state WithTx.
func (s *Session) Execute(ctx context.Context, sql string) (*operators.Result, error) {
	if s.state != WithTx {
		return nil, errs.NewInvalidTransactionState("statement execution requires state WithTx, session is %s", s.state)
	}
	cmd, err := s.ad.Parse(sql)
	if err != nil {
		return nil, err
	}

	switch cmd.Type {
	case parser.CommandCreateTable:
		ct := cmd.CreateTable
		if _, err := s.cat.CreateTable(ctx, s.tx, ct.TableName, ct.Columns, ct.Constraints); err != nil {
			return nil, err
		}
		return nil, nil
	case parser.CommandAlterTable:
		at := cmd.AlterTable
		if _, err := s.cat.AlterTable(ctx, s.tx, at.TableName, at.Action); err != nil {
			return nil, err
		}
		return nil, nil
	case parser.CommandDropTable:
		if err := s.cat.DropTable(ctx, s.tx, cmd.DropTable.TableName); err != nil {
			return nil, err
		}
		return nil, nil
	case parser.CommandInsert:
		return s.exec.Execute(ctx, s.tx, s.cat, planner.BuildInsert(cmd.Insert))
	case parser.CommandUpdate:
		return s.exec.Execute(ctx, s.tx, s.cat, planner.BuildUpdate(cmd.Update))
	case parser.CommandDelete:
		return s.exec.Execute(ctx, s.tx, s.cat, planner.BuildDelete(cmd.Delete))
	case parser.CommandSelect:
		return s.exec.Execute(ctx, s.tx, s.cat, planner.BuildSelect(cmd.Select))
	default:
		return nil, errs.NewSyntaxError("unsupported command type %q", cmd.Type)
	}
}
