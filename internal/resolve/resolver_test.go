package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/dkaufhold/factgraph/internal/models"
)

// fakeRegistry is an in-memory Registry.
type fakeRegistry struct {
	entities map[string]*models.Entity // norm_name -> entity
	aliases  map[string]string         // norm_surface -> entity norm_name
	nextID   int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		entities: make(map[string]*models.Entity),
		aliases:  make(map[string]string),
	}
}

func (f *fakeRegistry) seed(name string) *models.Entity {
	norm := Normalize(name)
	f.nextID++
	e := &models.Entity{
		ID:       surrealmodels.RecordID{Table: "entity", ID: fmt.Sprintf("e%d", f.nextID)},
		Name:     name,
		NormName: norm,
	}
	f.entities[norm] = e
	return e
}

func (f *fakeRegistry) GetByNorm(_ context.Context, normName string) (*models.Entity, error) {
	if e, ok := f.entities[normName]; ok {
		return e, nil
	}
	return nil, nil
}

func (f *fakeRegistry) GetByAlias(_ context.Context, normSurface string) (*models.Entity, error) {
	if norm, ok := f.aliases[normSurface]; ok {
		return f.entities[norm], nil
	}
	return nil, nil
}

func (f *fakeRegistry) Candidates(_ context.Context, _, _ string, _ int) ([]models.Entity, error) {
	var out []models.Entity
	for _, e := range f.entities {
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeRegistry) Create(_ context.Context, name, normName string, entityType models.EntityType, needsReview bool) (*models.Entity, error) {
	if e, ok := f.entities[normName]; ok {
		return e, nil
	}
	f.nextID++
	e := &models.Entity{
		ID:          surrealmodels.RecordID{Table: "entity", ID: fmt.Sprintf("e%d", f.nextID)},
		Name:        name,
		NormName:    normName,
		Type:        entityType,
		NeedsReview: needsReview,
	}
	f.entities[normName] = e
	return e, nil
}

func (f *fakeRegistry) AddAlias(_ context.Context, entityID, _, normSurface string) error {
	for norm, e := range f.entities {
		if models.MustRecordIDString(e.ID) == entityID {
			f.aliases[normSurface] = norm
			return nil
		}
	}
	return fmt.Errorf("unknown entity %s", entityID)
}

func newTestResolver(reg Registry) *Resolver {
	return NewResolver(reg, nil, 0.85, 0.10, slog.New(slog.DiscardHandler))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Alice Chen", want: "alice chen"},
		{in: "  ALICE   CHEN  ", want: "alice chen"},
		{in: "bob", want: "bob"},
		{in: "   ", want: ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLevenshteinScorer(t *testing.T) {
	s := LevenshteinScorer{}

	assert.Equal(t, 1.0, s.Score("alice chen", "alice chen"))
	assert.Equal(t, 0.0, s.Score("alice", ""))
	assert.InDelta(t, 0.9, s.Score("alice chen", "alice che"), 0.01)
	assert.Less(t, s.Score("alice chen", "zzz"), 0.2)
}

func TestResolveMention_ExactMatch(t *testing.T) {
	reg := newFakeRegistry()
	seeded := reg.seed("Alice Chen")
	r := newTestResolver(reg)

	b, err := r.ResolveMention(context.Background(), "alice  chen", models.RoleActor)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, b.Entity.ID)
	assert.False(t, b.Created)
	assert.Equal(t, models.RoleActor, b.Role)
}

func TestResolveMention_AliasMatch(t *testing.T) {
	reg := newFakeRegistry()
	seeded := reg.seed("Robert Smith")
	reg.aliases["bob"] = seeded.NormName
	r := newTestResolver(reg)

	b, err := r.ResolveMention(context.Background(), "Bob", models.RoleSubject)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, b.Entity.ID)
	assert.False(t, b.Created)
}

func TestResolveMention_FuzzyBindAddsAlias(t *testing.T) {
	reg := newFakeRegistry()
	seeded := reg.seed("Jonathan Smith")
	r := newTestResolver(reg)

	// Two edits over fourteen runes scores ~0.857, above the threshold.
	b, err := r.ResolveMention(context.Background(), "Jonathon Smyth", models.RoleActor)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, b.Entity.ID)
	assert.False(t, b.Created)
	assert.Equal(t, seeded.NormName, reg.aliases["jonathon smyth"])
}

func TestResolveMention_AmbiguousCreatesFlagged(t *testing.T) {
	reg := newFakeRegistry()
	seeded := reg.seed("Jonathan Smith")
	r := newTestResolver(reg)

	// Three edits over fifteen runes scores 0.8: below threshold, inside
	// the review margin.
	b, err := r.ResolveMention(context.Background(), "Jonathon Smythe", models.RoleActor)
	require.NoError(t, err)
	assert.NotEqual(t, seeded.ID, b.Entity.ID)
	assert.True(t, b.Created)
	assert.True(t, b.Entity.NeedsReview)
}

func TestResolveMention_NoMatchCreatesClean(t *testing.T) {
	reg := newFakeRegistry()
	reg.seed("Jonathan Smith")
	r := newTestResolver(reg)

	b, err := r.ResolveMention(context.Background(), "Platform Team", models.RoleSubject)
	require.NoError(t, err)
	assert.True(t, b.Created)
	assert.False(t, b.Entity.NeedsReview)
	assert.Equal(t, models.EntityTeam, b.Entity.Type)
}

func TestResolveMention_EmptyRegistry(t *testing.T) {
	r := newTestResolver(newFakeRegistry())

	b, err := r.ResolveMention(context.Background(), "Alice", models.RoleActor)
	require.NoError(t, err)
	assert.True(t, b.Created)
	assert.False(t, b.Entity.NeedsReview)
	assert.Equal(t, models.EntityPerson, b.Entity.Type)
}

func TestResolveMention_Monotonic(t *testing.T) {
	r := newTestResolver(newFakeRegistry())
	ctx := context.Background()

	first, err := r.ResolveMention(ctx, "Alice Chen", models.RoleActor)
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := r.ResolveMention(ctx, "Alice Chen", models.RoleSubject)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Entity.ID, second.Entity.ID)
}

func TestResolveMention_Empty(t *testing.T) {
	r := newTestResolver(newFakeRegistry())

	_, err := r.ResolveMention(context.Background(), "   ", models.RoleActor)
	require.Error(t, err)
}

func TestGuessType(t *testing.T) {
	tests := []struct {
		norm string
		want models.EntityType
	}{
		{norm: "alice chen", want: models.EntityPerson},
		{norm: "platform team", want: models.EntityTeam},
		{norm: "acme corp", want: models.EntityOrganization},
		{norm: "initech llc", want: models.EntityOrganization},
	}
	for _, tt := range tests {
		if got := guessType(tt.norm); got != tt.want {
			t.Errorf("guessType(%q) = %v, want %v", tt.norm, got, tt.want)
		}
	}
}
