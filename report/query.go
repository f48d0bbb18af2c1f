package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// ErrNoRecords is returned when no matching record exists in the dataset.
var ErrNoRecords = errors.New("no matching report records found")

// QueryLatest returns the most recent record of kind, optionally filtered
// by collection.
func QueryLatest(ctx context.Context, ds lode.Dataset, kind, collection string) (map[string]any, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, wrapError("read", DatasetID+"/snapshots", err)
	}
	if collection != "" {
		collection = partitionValue(collection)
	}

	// Snapshots are ordered by creation time; walk latest first.
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotMatches(snap, "record_kind", kind) || !snapshotMatches(snap, "collection", collection) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, wrapError("read", fmt.Sprintf("%s/snapshot/%s", DatasetID, snap.ID), err)
		}
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || record["record_kind"] != kind {
				continue
			}
			if collection != "" && record["collection"] != collection {
				continue
			}
			return record, nil
		}
	}
	return nil, ErrNoRecords
}

// snapshotMatches checks whether any file of snap lies in the key=value
// partition. An empty value matches everything.
func snapshotMatches(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	segment := key + "=" + value
	for _, f := range snap.Manifest.Files {
		for _, part := range strings.Split(f.Path, "/") {
			if part == segment {
				return true
			}
		}
	}
	return false
}
