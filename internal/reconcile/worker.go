package reconcile

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/devlinkgh/backend/internal/escrow"
)

// DepositJobArgs reconciles one gateway reference. Unique by args so a
// storm of webhook redeliveries collapses into one job.
type DepositJobArgs struct {
	Reference string `json:"reference"`
}

func (DepositJobArgs) Kind() string { return "reconcile_deposit" }

func (DepositJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{UniqueOpts: river.UniqueOpts{ByArgs: true}}
}

// RepairJobArgs replays a compensating ledger mutation that failed inline.
type RepairJobArgs struct {
	Repair escrow.Repair `json:"repair"`
}

func (RepairJobArgs) Kind() string { return "compensation_repair" }

// DepositReconciler is the engine side the deposit worker drives.
type DepositReconciler interface {
	ReconcileDeposit(ctx context.Context, reference string) (int64, error)
}

// DepositWorker settles deposits enqueued by the gateway webhook.
type DepositWorker struct {
	river.WorkerDefaults[DepositJobArgs]
	engine DepositReconciler
	log    *slog.Logger
}

func NewDepositWorker(engine DepositReconciler, log *slog.Logger) *DepositWorker {
	if log == nil {
		log = slog.Default()
	}
	return &DepositWorker{engine: engine, log: log}
}

func (w *DepositWorker) Work(ctx context.Context, job *river.Job[DepositJobArgs]) error {
	amount, err := w.engine.ReconcileDeposit(ctx, job.Args.Reference)
	if err == nil {
		w.log.Info("deposit reconciled async", "reference", job.Args.Reference, "amount", amount)
		return nil
	}
	switch escrow.KindOf(err) {
	case escrow.KindAlreadyProcessed:
		// A concurrent verify-redirect or an earlier delivery won; done.
		return nil
	case escrow.KindVerificationFailed, escrow.KindRecipientNotFound:
		// Terminal: retrying cannot change the processor's answer or
		// conjure the wallet. Log and stop.
		w.log.Warn("deposit reconciliation terminal failure",
			"reference", job.Args.Reference, "error", err)
		return nil
	default:
		// Gateway trouble or a store hiccup: reconciliation is idempotent,
		// so let river retry the whole thing.
		return err
	}
}

// RepairApplier executes one compensating mutation.
type RepairApplier interface {
	ApplyRepair(ctx context.Context, r escrow.Repair) error
}

// RepairWorker retries escalated compensations until the reversal lands.
type RepairWorker struct {
	river.WorkerDefaults[RepairJobArgs]
	applier RepairApplier
	log     *slog.Logger
}

func NewRepairWorker(applier RepairApplier, log *slog.Logger) *RepairWorker {
	if log == nil {
		log = slog.Default()
	}
	return &RepairWorker{applier: applier, log: log}
}

func (w *RepairWorker) Work(ctx context.Context, job *river.Job[RepairJobArgs]) error {
	if err := w.applier.ApplyRepair(ctx, job.Args.Repair); err != nil {
		w.log.Error("compensation repair attempt failed",
			"action", job.Args.Repair.Action, "reason", job.Args.Repair.Reason, "error", err)
		return err
	}
	w.log.Info("compensation repaired",
		"action", job.Args.Repair.Action, "reason", job.Args.Repair.Reason)
	return nil
}
