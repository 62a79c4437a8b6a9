package persona_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/practerview-agent/internal/app/persona"
	"github.com/PabloGalante/practerview-agent/internal/domain"
)

func TestTemplatesAreBasePlusRole(t *testing.T) {
	reg := persona.NewRegistry()

	for _, it := range reg.Types() {
		role, ok := persona.RoleInstructions(it)
		require.True(t, ok, "type %q", it)

		tmpl := reg.Template(it)
		assert.NotEmpty(t, tmpl)
		assert.Equal(t, persona.BaseSystemPrompt+"\n"+role, tmpl, "type %q", it)
	}
}

func TestKnownTypes(t *testing.T) {
	reg := persona.NewRegistry()

	want := []domain.InterviewType{
		"aiml", "backend", "default", "devops", "frontend",
		"fullstack", "general", "hackathon", "hr",
	}
	assert.Equal(t, want, reg.Types())
	assert.Contains(t, reg.Template("backend"), "Backend Developer")
	assert.Contains(t, reg.Template("hackathon"), "hackathon project")
}

func TestUnknownTypeFallsBackToDefault(t *testing.T) {
	reg := persona.NewRegistry()
	def := reg.Template(domain.DefaultInterviewType)

	for _, label := range []domain.InterviewType{"", "quantum", "Backend", " backend"} {
		assert.Equal(t, def, reg.Template(label), "label %q", label)
		assert.Equal(t, domain.DefaultInterviewType, reg.Resolve(label), "label %q", label)
	}
	assert.Equal(t, domain.InterviewType("hr"), reg.Resolve("hr"))
}

func TestParseMetadata(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    domain.InterviewType
		wantErr error
	}{
		{name: "valid", raw: `{"type":"backend"}`, want: "backend"},
		{name: "extra fields", raw: `{"type":"hr","name":"x"}`, want: "hr"},
		{name: "trimmed", raw: `{"type":"  devops "}`, want: "devops"},
		{name: "empty", raw: "", wantErr: persona.ErrMetadataAbsent},
		{name: "blank", raw: "   ", wantErr: persona.ErrMetadataAbsent},
		{name: "not json", raw: "type=backend", wantErr: persona.ErrMetadataMalformed},
		{name: "json array", raw: `["backend"]`, wantErr: persona.ErrMetadataMalformed},
		{name: "json null", raw: "null", wantErr: persona.ErrMetadataMalformed},
		{name: "no type", raw: `{"role":"backend"}`, wantErr: persona.ErrTypeMissing},
		{name: "empty type", raw: `{"type":""}`, wantErr: persona.ErrTypeMissing},
		{name: "non string type", raw: `{"type":42}`, wantErr: persona.ErrTypeMissing},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := persona.ParseMetadata(tc.raw)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSlotDefaultsWhenNothingObserved(t *testing.T) {
	slot := persona.NewSlot()
	assert.Equal(t, domain.DefaultInterviewType, slot.Current())

	for _, raw := range []string{"", "{", `{"x":1}`} {
		_, err := slot.Observe(raw)
		assert.Error(t, err)
	}
	assert.Equal(t, domain.DefaultInterviewType, slot.Current())
}

func TestSlotLastWriteWins(t *testing.T) {
	slot := persona.NewSlot()

	_, err := slot.Observe(`{"type":"frontend"}`)
	require.NoError(t, err)
	_, err = slot.Observe(`{"type":"backend"}`)
	require.NoError(t, err)

	assert.Equal(t, domain.InterviewType("backend"), slot.Current())
}

func TestSlotSeedNeverOverwrites(t *testing.T) {
	slot := persona.NewSlot()

	_, err := slot.Seed("{")
	assert.ErrorIs(t, err, persona.ErrMetadataMalformed)

	got, err := slot.Seed(`{"type":"hr"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.InterviewType("hr"), got)

	_, err = slot.Seed(`{"type":"devops"}`)
	assert.ErrorIs(t, err, persona.ErrAlreadyObserved)
	assert.Equal(t, domain.InterviewType("hr"), slot.Current())

	// a join still overwrites
	_, err = slot.Observe(`{"type":"backend"}`)
	require.NoError(t, err)
	_, err = slot.Seed(`{"type":"hr"}`)
	assert.ErrorIs(t, err, persona.ErrAlreadyObserved)
	assert.Equal(t, domain.InterviewType("backend"), slot.Current())
}

func TestSlotIgnoresInvalidAfterValid(t *testing.T) {
	slot := persona.NewSlot()

	_, err := slot.Observe(`{"type":"hr"}`)
	require.NoError(t, err)
	_, err = slot.Observe("not json")
	require.Error(t, err)

	assert.Equal(t, domain.InterviewType("hr"), slot.Current())
}

func TestSlotConcurrentObserve(t *testing.T) {
	slot := persona.NewSlot()
	labels := []string{"frontend", "backend", "hr", "devops"}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = slot.Observe(`{"type":"` + labels[i%len(labels)] + `"}`)
			_ = slot.Current()
		}(i)
	}
	wg.Wait()

	got := string(slot.Current())
	assert.True(t, strings.Contains(strings.Join(labels, ","), got), "unexpected value %q", got)
}
