// Package roster provides the read-only lists of known actor names and movie
// titles that prompt extraction matches against.
package roster

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"findingmovie/searchservice/internal/textmatch"
)

const defaultSuggestLimit = 3

//go:embed default_roster.yaml
var defaultRosterYAML []byte

var ErrEmptyRoster = errors.New("roster has no actors or titles")

// Snapshot is the serialized roster shape shared by every source.
type Snapshot struct {
	Actors []string `yaml:"actors"`
	Titles []string `yaml:"titles"`
}

type Source interface {
	Name() string
	Load(ctx context.Context) (Snapshot, error)
}

// Roster is immutable once built and safe for concurrent readers.
type Roster struct {
	actors []string
	titles []string
	source string
}

func New(snapshot Snapshot, source string) *Roster {
	return &Roster{
		actors: uniqueNames(snapshot.Actors),
		titles: uniqueNames(snapshot.Titles),
		source: source,
	}
}

// Default returns the roster compiled into the binary.
func Default() *Roster {
	snapshot, err := parseYAML(defaultRosterYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded roster is invalid: %v", err))
	}
	return New(snapshot, "embedded")
}

// Load tries each source in order and falls back to the embedded roster.
func Load(ctx context.Context, logger *slog.Logger, sources ...Source) *Roster {
	if logger == nil {
		logger = slog.Default()
	}
	for _, source := range sources {
		if source == nil {
			continue
		}
		snapshot, err := source.Load(ctx)
		if err == nil && (len(snapshot.Actors) == 0 && len(snapshot.Titles) == 0) {
			err = ErrEmptyRoster
		}
		if err != nil {
			logger.Warn("roster source unavailable",
				slog.String("source", source.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		r := New(snapshot, source.Name())
		logger.Info("roster loaded",
			slog.String("source", source.Name()),
			slog.Int("actors", len(r.actors)),
			slog.Int("titles", len(r.titles)),
		)
		return r
	}
	return Default()
}

func (r *Roster) Actors() []string {
	return append([]string(nil), r.actors...)
}

func (r *Roster) Titles() []string {
	return append([]string(nil), r.titles...)
}

func (r *Roster) Source() string {
	return r.source
}

// SuggestActors returns roster actors whose folded name contains the folded
// input, in roster order.
func (r *Roster) SuggestActors(name string, limit int) []string {
	needle := textmatch.Fold(name)
	if needle == "" {
		return []string{}
	}
	if limit <= 0 {
		limit = defaultSuggestLimit
	}
	out := make([]string, 0, limit)
	for _, actor := range r.actors {
		if strings.Contains(textmatch.Fold(actor), needle) {
			out = append(out, actor)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

func parseYAML(data []byte) (Snapshot, error) {
	var snapshot Snapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}

func uniqueNames(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, raw := range values {
		value := strings.Join(strings.Fields(raw), " ")
		key := textmatch.Fold(value)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, value)
	}
	return out
}
