package app

import (
	"context"
	"time"

	"github.com/visionaid/go-visionaid/internal/log"
	"github.com/visionaid/go-visionaid/pkg/alert"
	"github.com/visionaid/go-visionaid/pkg/detection"
	"github.com/visionaid/go-visionaid/pkg/proximity"
)

const (
	itemDetection = "detection"
	itemAlert     = "alert"
	itemScene     = "scene"

	writeTimeout = 2 * time.Second
)

type persistItem struct {
	kind    string
	det     detection.Detection
	ev      proximity.Event
	al      alert.Alert
	summary string
	objects int
}

// persist hands a record to the write worker without blocking the
// pipeline. A full queue drops the record.
func (a *App) persist(item persistItem) {
	select {
	case a.persistCh <- item:
	default:
		log.Warn("persistence queue full, dropping record", "kind", item.kind)
	}
}

// runPersist drains the write queue. On shutdown it flushes whatever
// is already queued before returning.
func (a *App) runPersist(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case item := <-a.persistCh:
					a.write(item)
				default:
					return
				}
			}
		case item := <-a.persistCh:
			a.write(item)
		}
	}
}

// write uses a background context so queued records still land
// during shutdown.
func (a *App) write(item persistItem) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	switch item.kind {
	case itemDetection:
		err = a.store.LogDetection(ctx, item.det, item.ev)
	case itemAlert:
		err = a.store.LogAlert(ctx, item.al)
	case itemScene:
		err = a.store.LogSceneSummary(ctx, item.summary, item.objects)
	}
	if err != nil {
		log.Warn("persistence write failed", "kind", item.kind, "error", err)
	}
}
