package migrate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/mschirtzinger/flowboard/internal/backend"
	"github.com/mschirtzinger/flowboard/internal/schema"
)

// ErrNoLegacyData is returned by FromLegacy when no older generation could be
// recovered.
var ErrNoLegacyData = errors.New("no legacy data")

// LegacySource exposes the raw bytes of older board generations. It returns
// an error wrapping backend.ErrNoData when a generation was never stored.
type LegacySource interface {
	Legacy(ctx context.Context, v Version) ([]byte, error)
}

// Result describes a successful migration.
type Result struct {
	Document *schema.Document
	From     Version
	Tasks    int
	Modules  int
}

// Migrate converts raw bytes of the given generation into a current document.
func Migrate(v Version, data []byte) (*schema.Document, error) {
	switch v {
	case V1:
		v1, err := DecodeV1(data)
		if err != nil {
			return nil, err
		}
		return V1ToV3(v1), nil
	case V2:
		doc, err := DecodeV2(data)
		if err != nil {
			return nil, err
		}
		return V2ToV3(doc), nil
	case V3:
		doc, err := schema.Decode(data)
		if err != nil {
			return nil, err
		}
		return NormalizeV3(doc), nil
	default:
		return nil, fmt.Errorf("unknown document version %d", v)
	}
}

// FromLegacy recovers the newest older generation available in src, trying V2
// before V1. A generation that is missing or fails to parse is skipped with a
// warning and the next one is tried.
//
// If logger is nil, a default logger writing to stderr is used.
func FromLegacy(ctx context.Context, src LegacySource, logger *log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[migrate] ", log.LstdFlags)
	}

	for _, v := range []Version{V2, V1} {
		data, err := src.Legacy(ctx, v)
		if err != nil {
			if !errors.Is(err, backend.ErrNoData) {
				logger.Printf("WARNING: Failed to read %s data: %v", v, err)
			}
			continue
		}

		doc, err := Migrate(v, data)
		if err != nil {
			logger.Printf("WARNING: Skipping %s data: %v", v, err)
			continue
		}

		logger.Printf("Migrated %s data: %d modules, %d tasks", v, len(doc.Modules), len(doc.Tasks))
		return &Result{
			Document: doc,
			From:     v,
			Tasks:    len(doc.Tasks),
			Modules:  len(doc.Modules),
		}, nil
	}

	return nil, ErrNoLegacyData
}
