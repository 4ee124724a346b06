package engine

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/microscaler/secret-manager-controller/internal/parser"
	"github.com/microscaler/secret-manager-controller/internal/provider"
)

// OpKind discriminates one publish-plan entry.
type OpKind string

const (
	OpPublish OpKind = "publish"
	OpDisable OpKind = "disable"
)

// Op is one planned remote mutation, keyed by the owned remote name.
type Op struct {
	Kind       OpKind
	RemoteName string
	Value      []byte // set only for OpPublish
	Version    string // set only for OpDisable: the version to disable
}

// DriftWarning reports a remote name that looks owned by this MC but is
// absent from the current bundle. It is never acted on — drift-detection is
// report-only per the naming policy's non-destructive guarantee.
type DriftWarning struct {
	RemoteName string
}

// Plan is the full set of mutations one reconciliation's planning stage
// computes, plus any drift warnings when drift-detection is enabled.
type Plan struct {
	Ops   []Op
	Drift []DriftWarning
}

var invalidNameChar = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// ownedRemoteName implements §3's "Owned Remote Name": sanitise(prefix? +
// '-' + key + '-' + suffix?), collapsing separators when a component is absent.
func ownedRemoteName(prefix, key, suffix string) string {
	parts := make([]string, 0, 3)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, key)
	if suffix != "" {
		parts = append(parts, suffix)
	}
	joined := strings.Join(parts, "-")
	return invalidNameChar.ReplaceAllString(joined, "_")
}

// computePlan implements §4.7's planning stage. bundle is the merged,
// decrypted secret bundle; prov supplies read-latest and list-owned; prefix
// and suffix are the MC's naming policy; driftDetection toggles reporting.
func computePlan(ctx context.Context, bundle *parser.Bundle, prov provider.Provider, prefix, suffix string, driftDetection bool) (Plan, error) {
	var plan Plan
	owned := make(map[string]bool, bundle.Len())

	for _, key := range bundle.Keys() {
		entry, _ := bundle.Get(key)
		remoteName := ownedRemoteName(prefix, key, suffix)
		owned[remoteName] = true

		if !entry.Enabled {
			latest, err := prov.ReadLatest(ctx, remoteName)
			if err != nil {
				var notFound *provider.NotFoundError
				if errors.As(err, &notFound) {
					continue // nothing remote to disable
				}
				return Plan{}, err
			}
			plan.Ops = append(plan.Ops, Op{Kind: OpDisable, RemoteName: remoteName, Version: latest.Version})
			continue
		}

		latest, err := prov.ReadLatest(ctx, remoteName)
		if err != nil {
			var notFound *provider.NotFoundError
			if !errors.As(err, &notFound) {
				return Plan{}, err
			}
			plan.Ops = append(plan.Ops, Op{Kind: OpPublish, RemoteName: remoteName, Value: []byte(entry.Value)})
			continue
		}
		if string(latest.Data) != entry.Value {
			plan.Ops = append(plan.Ops, Op{Kind: OpPublish, RemoteName: remoteName, Value: []byte(entry.Value)})
		}
	}

	if driftDetection {
		remote, err := prov.ListOwned(ctx, prefix)
		if err != nil {
			return Plan{}, err
		}
		for _, ref := range remote {
			if !owned[ref.Name] {
				plan.Drift = append(plan.Drift, DriftWarning{RemoteName: ref.Name})
			}
		}
	}

	sort.Slice(plan.Ops, func(i, j int) bool { return plan.Ops[i].RemoteName < plan.Ops[j].RemoteName })
	return plan, nil
}
