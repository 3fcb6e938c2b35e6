package fts

import (
	"context"
	"database/sql"
	"fmt"
)

// gate models the fts_maintenance state machine in Go rather than SQL
// triggers: Go has no trigger DSL. openGate/closeGate are the only
// functions that flip fts_maintenance.enabled, and BuildFTSTree makes
// every fts_chunks write between them, mirroring each change into
// fts_chunks_fts in the same transaction. Nothing rejects a write made
// while the gate is closed: the write helpers do not read the gate and
// no trigger exists; ValidateFTS reports whether the gate is closed.
func openGate(ctx context.Context, tx *sql.Tx) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE fts_maintenance SET enabled = 1 WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("fts: open gate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("fts: open gate: %w", err)
	}
	if affected == 0 {
		return ErrGateMissing
	}
	return nil
}

func closeGate(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE fts_maintenance SET enabled = 0 WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("fts: close gate: %w", err)
	}
	return nil
}

func gateIsOpen(ctx context.Context, tx *sql.Tx) (bool, error) {
	var enabled int
	err := tx.QueryRowContext(ctx,
		`SELECT enabled FROM fts_maintenance WHERE id = 1`).Scan(&enabled)
	if err == sql.ErrNoRows {
		return false, ErrGateMissing
	}
	if err != nil {
		return false, fmt.Errorf("fts: read gate: %w", err)
	}
	return enabled == 1, nil
}
