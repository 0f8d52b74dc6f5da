package beet

import (
	"context"
	"slices"
	"strings"

	"github.com/quay/zlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Metrics singletons.
var (
	tracer trace.Tracer
	meter  metric.Meter

	scanCounter    metric.Int64Counter
	dropCounter    metric.Int64Counter
	unmatchCounter metric.Int64Counter
)

func init() {
	const pkgname = `github.com/vdvman1/beet`
	tracer = otel.Tracer(pkgname)
	meter = otel.Meter(pkgname)

	var err error
	scanCounter, err = meter.Int64Counter("pack.scan.files",
		metric.WithDescription("total number of origin files classified into a pack"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		panic(err)
	}
	dropCounter, err = meter.Int64Counter("pack.scan.skipped",
		metric.WithDescription("total number of origin files outside the pack layout"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		panic(err)
	}
	unmatchCounter, err = meter.Int64Counter("pack.scan.unmatched",
		metric.WithDescription("total number of origin files dropped for lacking a registered scope and extension"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		panic(err)
	}
}

type scannedNamespace struct {
	name string
	ns   *Namespace
}

// scanNamespaces reverse-maps the flat paths of an origin into namespaces.
//
// Every candidate path is prefixed with prefix and destructured into
// (directory, namespace, scope..., basename). The basename's extensions are
// tried longest first; the scope is stripped from the deepest segment up
// until the registry matches. Namespace-extra filenames win over registry
// classification. Files matching nothing are dropped silently; files that
// match but fail to load abort the scan.
func scanNamespaces(ctx context.Context, directory string, reg *Registry, extraInfo map[string]*Kind, prefix string, origin Origin) ([]scannedNamespace, error) {
	ctx, span := tracer.Start(ctx, "scanNamespaces")
	defer span.End()
	ctx = zlog.ContextWithValues(ctx, "component", "beet/scanNamespaces")

	var preparts []string
	for part := range strings.SplitSeq(prefix, "/") {
		if part != "" {
			preparts = append(preparts, part)
		}
	}
	if len(preparts) > 0 && preparts[0] != directory {
		return nil, nil
	}

	names, err := origin.List()
	if err != nil {
		return nil, err
	}
	// The origin enumeration order is unspecified; the full path string
	// sort makes scans deterministic and keeps each namespace's files
	// contiguous.
	names = slices.Clone(names)
	slices.Sort(names)

	var out []scannedNamespace
	var cur *Namespace
	curName := ""
	flush := func() {
		if curName != "" && cur != nil {
			out = append(out, scannedNamespace{name: curName, ns: cur})
		}
	}

	for _, filename := range names {
		parts := preparts
		if filename != "" {
			parts = append(slices.Clone(preparts), strings.Split(filename, "/")...)
		}
		if len(parts) < 3 {
			dropCounter.Add(ctx, 1)
			continue
		}
		if parts[0] != directory {
			dropCounter.Add(ctx, 1)
			continue
		}
		nsDir := parts[1]
		scope := parts[2 : len(parts)-1]
		basename := parts[len(parts)-1]

		if nsDir != curName {
			flush()
			curName, cur = nsDir, NewNamespace()
		}

		if k, ok := extraInfo[strings.Join(append(slices.Clone(scope), basename), "/")]; ok {
			f, err := loadFile(k, origin, filename)
			if err != nil {
				return nil, err
			}
			if err := cur.extra.Put(strings.Join(append(slices.Clone(scope), basename), "/"), f); err != nil {
				return nil, err
			}
			scanCounter.Add(ctx, 1)
			continue
		}

		exts := extensionCandidates(basename)
		matched := false
		var fileDir []string
		sc := slices.Clone(scope)
	Strip:
		for len(sc) > 0 {
			for _, ext := range exts {
				k := reg.Lookup(sc, ext)
				if k == nil {
					continue
				}
				f, err := loadFile(k, origin, filename)
				if err != nil {
					return nil, err
				}
				key := strings.Join(append(slices.Clone(fileDir), basename[:len(basename)-len(ext)]), "/")
				if err := cur.Container(k).Put(key, f); err != nil {
					return nil, err
				}
				matched = true
				break Strip
			}
			fileDir = append([]string{sc[len(sc)-1]}, fileDir...)
			sc = sc[:len(sc)-1]
		}
		if matched {
			scanCounter.Add(ctx, 1)
		} else {
			unmatchCounter.Add(ctx, 1)
			zlog.Debug(ctx).Str("path", filename).Msg("no scope and extension match, dropping")
		}
	}
	flush()
	return out, nil
}
