package engine

import (
    "context"
    "errors"
    "fmt"
    "log"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
    "github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// Ingest applies one telemetry batch.  Samples are grouped per table and
// applied in arrival order within each table; tables absent from the
// batch are left untouched, because a detector cycle omitting a table is
// not evidence that it is empty.  A persistence failure for one table is
// logged and collected but never aborts the remaining tables; samples for
// unknown table ids are logged and skipped, never auto-created.
func (e *Engine) Ingest(ctx context.Context, samples []model.TelemetrySample) error {
    order := make([]uint64, 0, len(samples))
    grouped := make(map[uint64][]model.TelemetrySample, len(samples))
    for _, s := range samples {
        if _, ok := grouped[s.TableID]; !ok {
            order = append(order, s.TableID)
        }
        grouped[s.TableID] = append(grouped[s.TableID], s)
    }

    var errs []error
    for _, id := range order {
        if err := ctx.Err(); err != nil {
            errs = append(errs, err)
            break
        }
        unlock := e.lockTable(id)
        for _, s := range grouped[id] {
            s := s
            _, _, err := e.reconcileLocked(ctx, id, model.CauseTelemetry, &s)
            if err == nil {
                continue
            }
            if errors.Is(err, repository.ErrTableNotFound) {
                log.Printf("ingest: unknown table %d; sample ignored", id)
            } else {
                log.Printf("ingest: table %d: %v", id, err)
                errs = append(errs, fmt.Errorf("table %d: %w", id, err))
            }
            break // abandon this table's remaining samples, keep the rest of the batch
        }
        unlock()
    }
    return errors.Join(errs...)
}
