package services

import (
	"errors"
	"fmt"

	"github.com/AtRiskMedia/pagebuilder-go/internal/application/editor"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/repositories"
)

var ErrTemplateNotFound = errors.New("template not found")

// TemplateService exposes the element template library
type TemplateService struct {
	library repositories.TemplateRepository
}

func NewTemplateService(library repositories.TemplateRepository) *TemplateService {
	return &TemplateService{library: library}
}

// List returns templates, optionally restricted to one category
func (s *TemplateService) List(category string) []*canvas.ElementTemplate {
	all := s.library.List()
	if category == "" {
		return all
	}
	out := make([]*canvas.ElementTemplate, 0, len(all))
	for _, t := range all {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

func (s *TemplateService) Get(id string) (*canvas.ElementTemplate, error) {
	t, ok := s.library.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return t, nil
}

// Instantiate creates the template's subtree in session under parentID
func (s *TemplateService) Instantiate(session *editor.Session, templateID, parentID string, position int) (string, error) {
	t, err := s.Get(templateID)
	if err != nil {
		return "", err
	}
	return session.CreateFromTemplate(*t, parentID, position)
}
