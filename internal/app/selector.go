package app

import (
	"errors"
	"fmt"

	"cbt-exam-runner/internal/domain"
)

// Selector enforces the "exactly N subjects, mandatory one included" rule.
// It is not safe for concurrent use; ExamService serializes access.
type Selector struct {
	catalog   []domain.Subject
	byID      map[string]domain.Subject
	required  int
	mandatory string
	selected  []string
}

// NewSelector validates the catalog and preselects the mandatory subject.
func NewSelector(catalog []domain.Subject, required int) (*Selector, error) {
	if required < 1 {
		return nil, fmt.Errorf("required subject count must be positive, got %d", required)
	}
	if len(catalog) < required {
		return nil, fmt.Errorf("catalog has %d subjects, need at least %d", len(catalog), required)
	}

	s := &Selector{
		catalog:  make([]domain.Subject, len(catalog)),
		byID:     make(map[string]domain.Subject, len(catalog)),
		required: required,
	}
	copy(s.catalog, catalog)
	for _, sub := range catalog {
		if sub.ID == "" {
			return nil, errors.New("catalog subject without id")
		}
		if _, dup := s.byID[sub.ID]; dup {
			return nil, fmt.Errorf("duplicate subject %q", sub.ID)
		}
		s.byID[sub.ID] = sub
		if sub.Mandatory {
			if s.mandatory != "" {
				return nil, fmt.Errorf("more than one mandatory subject: %q and %q", s.mandatory, sub.ID)
			}
			s.mandatory = sub.ID
		}
	}
	if s.mandatory == "" {
		return nil, errors.New("catalog has no mandatory subject")
	}
	s.Reset()
	return s, nil
}

// Toggle adds or removes a subject. The selection is left unchanged on error.
func (s *Selector) Toggle(id string) error {
	sub, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownSubject, id)
	}
	if sub.Mandatory {
		return domain.ErrMandatorySubject
	}
	for i, sel := range s.selected {
		if sel == id {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
			return nil
		}
	}
	if len(s.selected) >= s.required {
		return domain.ErrSelectionFull
	}
	s.selected = append(s.selected, id)
	return nil
}

// CanStart reports whether exactly the required number of subjects is selected.
func (s *Selector) CanStart() bool {
	return len(s.selected) == s.required
}

// Selected returns the chosen subjects, mandatory first, then in pick order.
func (s *Selector) Selected() []domain.Subject {
	out := make([]domain.Subject, 0, len(s.selected))
	for _, id := range s.selected {
		out = append(out, s.byID[id])
	}
	return out
}

func (s *Selector) IsSelected(id string) bool {
	for _, sel := range s.selected {
		if sel == id {
			return true
		}
	}
	return false
}

func (s *Selector) Catalog() []domain.Subject {
	out := make([]domain.Subject, len(s.catalog))
	copy(out, s.catalog)
	return out
}

func (s *Selector) Required() int { return s.required }

// Reset drops everything but the mandatory subject.
func (s *Selector) Reset() {
	s.selected = []string{s.mandatory}
}
