// Package persona maps participant metadata to an interviewer persona.
package persona

import (
	"sort"

	"github.com/PabloGalante/practerview-agent/internal/domain"
)

// Registry holds the persona templates. It is built once and never mutated.
type Registry struct {
	templates map[domain.InterviewType]string
}

// NewRegistry builds every template as BaseSystemPrompt + role block.
func NewRegistry() *Registry {
	templates := make(map[domain.InterviewType]string, len(roleInstructions))
	for t, role := range roleInstructions {
		templates[t] = BaseSystemPrompt + "\n" + role
	}
	return &Registry{templates: templates}
}

// Template returns the template for t, or the default one for unknown labels.
func (r *Registry) Template(t domain.InterviewType) string {
	if tmpl, ok := r.templates[t]; ok {
		return tmpl
	}
	return r.templates[domain.DefaultInterviewType]
}

// Resolve normalizes t to a known interview type.
func (r *Registry) Resolve(t domain.InterviewType) domain.InterviewType {
	if _, ok := r.templates[t]; ok {
		return t
	}
	return domain.DefaultInterviewType
}

// Types lists the known interview types in lexical order.
func (r *Registry) Types() []domain.InterviewType {
	out := make([]domain.InterviewType, 0, len(r.templates))
	for t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
