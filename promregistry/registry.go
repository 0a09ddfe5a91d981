// Package promregistry holds named Prometheus series and renders them in the
// text exposition format.
//
// Unlike a bare prometheus.Registry it keeps track of the series it created so
// they can be looked up by name, reset without being unregistered, and
// exposed with their HELP and TYPE lines before anything has been recorded.
package promregistry

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// ContentType is the Content-Type of the text exposition format written by
// WriteText.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

var (
	// ErrUnknownKind is returned when registering a series of an unsupported
	// Kind.
	ErrUnknownKind = errors.New("unknown series kind")

	// ErrDuplicateName is returned when registering a series whose name is
	// already taken.
	ErrDuplicateName = errors.New("duplicate series name")
)

// A Registry holds references to a set of series by name. It is safe for
// concurrent use.
type Registry struct {
	mu         sync.Mutex
	reg        *prometheus.Registry
	series     map[string]*Series
	collectors []prometheus.Collector
}

// simple compile time check for interface compliance.
var _ prometheus.Gatherer = &Registry{}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		reg:    prometheus.NewRegistry(),
		series: make(map[string]*Series),
	}
}

// Register creates a series of kind k described by d.
func (r *Registry) Register(d Descriptor, k Kind) (*Series, error) {
	if !k.Valid() {
		return nil, errors.Wrapf(ErrUnknownKind, "registering %s as %s", d.Name, k)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.series[d.Name]; ok {
		return nil, errors.Wrapf(ErrDuplicateName, "registering %s", d.Name)
	}

	s := newSeries(d, k)
	if err := r.reg.Register(s.collector); err != nil {
		return nil, errors.Wrapf(err, "registering %s", d.Name)
	}
	s.zero()

	r.series[d.Name] = s
	return s, nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(d Descriptor, k Kind) *Series {
	s, err := r.Register(d, k)
	if err != nil {
		panic(err)
	}
	return s
}

// RegisterCollector adds an arbitrary collector, e.g. one of the
// client_golang process collectors. Its metrics are gathered with the rest of
// the registry but are not affected by Reset.
func (r *Registry) RegisterCollector(c prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.reg.Register(c); err != nil {
		return errors.Wrap(err, "registering collector")
	}
	r.collectors = append(r.collectors, c)
	return nil
}

// MustRegisterCollector is like RegisterCollector but panics on error.
func (r *Registry) MustRegisterCollector(c prometheus.Collector) {
	if err := r.RegisterCollector(c); err != nil {
		panic(err)
	}
}

// Lookup returns the series registered under name.
func (r *Registry) Lookup(name string) (*Series, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.series[name]
	return s, ok
}

// Unregister removes the series registered under name. It reports whether
// such a series existed. The name may then be registered again with another
// kind, help string or label names.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.series[name]; !ok {
		return false
	}
	delete(r.series, name)

	// A prometheus.Registry remembers the help and label names of every name
	// it has seen, even once unregistered, so start from a fresh one.
	reg := prometheus.NewRegistry()
	for _, c := range r.collectors {
		reg.MustRegister(c)
	}
	for _, s := range r.series {
		reg.MustRegister(s.collector)
	}
	r.reg = reg
	return true
}

// Reset clears the recorded values of every registered series. Names, help
// strings and label names are kept; unlabeled series are back to zero.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.series {
		s.reset()
	}
}

// Gather implements prometheus.Gatherer.
//
// Registered series without any data point are included as families without
// metrics. As with prometheus.Gatherer, a non-nil error may come with a
// partial, still usable, result.
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mfs, err := r.reg.Gather()

	seen := make(map[string]bool, len(mfs))
	for _, mf := range mfs {
		seen[mf.GetName()] = true
	}

	for name, s := range r.series {
		if !seen[name] {
			mfs = append(mfs, s.family())
		}
	}

	sort.Slice(mfs, func(i, j int) bool {
		return mfs[i].GetName() < mfs[j].GetName()
	})
	return mfs, err
}

// WriteText renders every series in the text exposition format.
//
// A gather error does not stop the rendering of what could be gathered; it
// is returned once everything has been written.
func (r *Registry) WriteText(w io.Writer) error {
	mfs, gatherErr := r.Gather()

	for _, mf := range mfs {
		if len(mf.GetMetric()) == 0 {
			if err := writeHeader(w, mf); err != nil {
				return errors.Wrapf(err, "writing %s", mf.GetName())
			}
			continue
		}

		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Wrapf(err, "writing %s", mf.GetName())
		}
	}

	return errors.Wrap(gatherErr, "gathering")
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

// writeHeader writes the HELP and TYPE lines of a family. expfmt refuses to
// render families without metrics.
func writeHeader(w io.Writer, mf *dto.MetricFamily) error {
	name := mf.GetName()
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n",
		name, helpEscaper.Replace(mf.GetHelp()),
		name, strings.ToLower(mf.GetType().String()),
	)
	return err
}
