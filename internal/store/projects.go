package store

import (
	"context"
	"fmt"
	"log/slog"

	"taskboard/internal/models"
	"taskboard/internal/normalize"
	"taskboard/internal/reactive"
	"taskboard/internal/validate"
)

// ProjectState is a snapshot of the project store.
type ProjectState struct {
	Projects []models.Project
	Current  *models.Project
	Status
}

// Projects is the project collection of the current user.
type Projects struct {
	backend ProjectBackend
	opts    options
	state   *reactive.Value[ProjectState]
}

// NewProjects creates an empty store.
func NewProjects(backend ProjectBackend, opts ...Option) *Projects {
	return &Projects{
		backend: backend,
		opts:    buildOptions(opts),
		state:   reactive.New(ProjectState{Projects: []models.Project{}}),
	}
}

// State returns the current snapshot.
func (p *Projects) State() ProjectState {
	return p.state.Get()
}

// Subscribe registers fn for every state change.
func (p *Projects) Subscribe(fn func(ProjectState)) (unsubscribe func()) {
	return p.state.Subscribe(fn)
}

// Fetch replaces the collection with the backend's list.
func (p *Projects) Fetch(ctx context.Context) error {
	p.state.Update(func(st ProjectState) ProjectState {
		st.begin()
		return st
	})

	recs, err := p.backend.ListProjects(ctx)
	var projects []models.Project
	if err == nil {
		projects, err = normalize.Projects(recs, p.opts.now())
	}

	p.state.Update(func(st ProjectState) ProjectState {
		st.end(err)
		if err != nil {
			return st
		}
		st.Projects = projects
		if st.Current != nil {
			for i := range projects {
				if projects[i].ID == st.Current.ID {
					current := projects[i]
					st.Current = &current
					break
				}
			}
		}
		return st
	})
	if err != nil {
		p.opts.logger.Warn("fetch projects failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Select makes the project with the given canonical or legacy id current, loading
// the collection first when it is empty.
func (p *Projects) Select(ctx context.Context, id string) (models.Project, error) {
	if len(p.State().Projects) == 0 {
		if err := p.Fetch(ctx); err != nil {
			return models.Project{}, err
		}
	}

	var selected *models.Project
	p.state.Update(func(st ProjectState) ProjectState {
		for i := range st.Projects {
			project := st.Projects[i]
			if hasID(id, project.ID, project.LegacyID) {
				selected = &project
				break
			}
		}
		if selected == nil {
			st.Err = "project not found"
			return st
		}
		st.Current = selected
		st.Err = ""
		return st
	})
	if selected == nil {
		return models.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return *selected, nil
}

// SetCurrent sets or clears the current project without a backend call.
func (p *Projects) SetCurrent(project *models.Project) {
	p.state.Update(func(st ProjectState) ProjectState {
		if project == nil {
			st.Current = nil
			return st
		}
		current := *project
		st.Current = &current
		return st
	})
}

// ClearError drops the last error.
func (p *Projects) ClearError() {
	p.state.Update(func(st ProjectState) ProjectState {
		st.Err = ""
		return st
	})
}

// Create adds a project after the backend accepted it.
func (p *Projects) Create(ctx context.Context, name, description string) (models.Project, error) {
	input := models.ProjectInput{Name: name, Description: description}
	if err := validate.ProjectInput(input); err != nil {
		return models.Project{}, err
	}

	p.state.Update(func(st ProjectState) ProjectState {
		st.begin()
		return st
	})

	rec, err := p.backend.CreateProject(ctx, input)
	var project models.Project
	if err == nil {
		project, err = normalize.Project(rec, p.opts.now())
	}

	p.state.Update(func(st ProjectState) ProjectState {
		st.end(err)
		if err == nil {
			st.Projects = appended(st.Projects, project)
		}
		return st
	})
	if err != nil {
		p.opts.logger.Warn("create project failed", slog.String("error", err.Error()))
		return models.Project{}, err
	}
	return project, nil
}

// Update applies patch to the project with the given canonical id.
func (p *Projects) Update(ctx context.Context, id string, patch models.ProjectPatch) (models.Project, error) {
	if err := validate.ProjectPatch(patch); err != nil {
		return models.Project{}, err
	}

	p.state.Update(func(st ProjectState) ProjectState {
		st.begin()
		return st
	})

	rec, err := p.backend.UpdateProject(ctx, id, patch)
	var project models.Project
	if err == nil {
		project, err = normalize.Project(rec, p.opts.now())
	}
	if err == nil && project.ID == "" {
		project.ID = id
	}

	found := false
	p.state.Update(func(st ProjectState) ProjectState {
		st.end(err)
		if err != nil {
			return st
		}
		st.Projects, found = replaced(st.Projects, func(existing models.Project) bool { return existing.ID == project.ID }, project)
		if st.Current != nil && st.Current.ID == project.ID {
			current := project
			st.Current = &current
		}
		return st
	})
	if err != nil {
		p.opts.logger.Warn("update project failed", slog.String("id", id), slog.String("error", err.Error()))
		return models.Project{}, err
	}
	if !found {
		p.opts.logger.Debug("updated project is not in the collection", slog.String("id", project.ID))
	}
	return project, nil
}

// Delete removes the project with the given canonical or legacy id after the backend did.
func (p *Projects) Delete(ctx context.Context, id string) error {
	p.state.Update(func(st ProjectState) ProjectState {
		st.begin()
		return st
	})

	err := p.backend.DeleteProject(ctx, id)

	p.state.Update(func(st ProjectState) ProjectState {
		st.end(err)
		if err != nil {
			return st
		}
		st.Projects = without(st.Projects, func(existing models.Project) bool { return hasID(id, existing.ID, existing.LegacyID) })
		if st.Current != nil && hasID(id, st.Current.ID, st.Current.LegacyID) {
			st.Current = nil
		}
		return st
	})
	if err != nil {
		p.opts.logger.Warn("delete project failed", slog.String("id", id), slog.String("error", err.Error()))
		return err
	}
	return nil
}
