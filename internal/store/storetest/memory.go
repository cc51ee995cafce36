// Package storetest provides an in-memory store.Store for tests. It honours
// the same contract as the PostgreSQL store: unique names, not-found
// sentinels, and WithTx rollback. Transactions are serialized by a single
// lock, which also makes LockForUpdate a no-op.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/promptlab/internal/apperrors"
	"github.com/nikhilbhutani/promptlab/internal/models"
	"github.com/nikhilbhutani/promptlab/internal/store"
)

type assocKey struct {
	test, prompt uuid.UUID
}

type data struct {
	projects     map[uuid.UUID]models.Project
	templates    map[uuid.UUID]models.PromptTemplate
	modelConfigs map[uuid.UUID]models.ModelConfig
	prompts      map[uuid.UUID]models.Prompt
	tests        map[uuid.UUID]models.Test
	associations map[assocKey]models.Association
	// seq orders associations by insertion for deterministic listing.
	assocSeq map[assocKey]int
	seq      int
}

func newData() *data {
	return &data{
		projects:     map[uuid.UUID]models.Project{},
		templates:    map[uuid.UUID]models.PromptTemplate{},
		modelConfigs: map[uuid.UUID]models.ModelConfig{},
		prompts:      map[uuid.UUID]models.Prompt{},
		tests:        map[uuid.UUID]models.Test{},
		associations: map[assocKey]models.Association{},
		assocSeq:     map[assocKey]int{},
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.projects {
		c.projects[k] = v
	}
	for k, v := range d.templates {
		c.templates[k] = v
	}
	for k, v := range d.modelConfigs {
		c.modelConfigs[k] = v
	}
	for k, v := range d.prompts {
		c.prompts[k] = v
	}
	for k, v := range d.tests {
		c.tests[k] = v
	}
	for k, v := range d.associations {
		c.associations[k] = v
	}
	for k, v := range d.assocSeq {
		c.assocSeq[k] = v
	}
	c.seq = d.seq
	return c
}

// Store is an in-memory store.Store.
type Store struct {
	mu   sync.Mutex
	data *data

	// FailOn makes the named operation (e.g. "AddAssociation") fail with a
	// storage error. Guarded by mu.
	failOn map[string]error
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: newData(), failOn: map[string]error{}}
}

// FailOn injects err for every later call of op.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[op] = err
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(repos{s: s, locked: true}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Projects() store.ProjectRepository         { return repos{s: s}.Projects() }
func (s *Store) Templates() store.TemplateRepository       { return repos{s: s}.Templates() }
func (s *Store) ModelConfigs() store.ModelConfigRepository { return repos{s: s}.ModelConfigs() }
func (s *Store) Prompts() store.PromptRepository           { return repos{s: s}.Prompts() }
func (s *Store) Tests() store.TestRepository               { return repos{s: s}.Tests() }

// Counts reports row counts, for assertions on rollback behaviour.
type Counts struct {
	Projects, Templates, ModelConfigs, Prompts, Tests, Associations int
}

func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counts{
		Projects:     len(s.data.projects),
		Templates:    len(s.data.templates),
		ModelConfigs: len(s.data.modelConfigs),
		Prompts:      len(s.data.prompts),
		Tests:        len(s.data.tests),
		Associations: len(s.data.associations),
	}
}

// repos binds repositories to the store. Inside WithTx the lock is already
// held, so locked is true and individual calls do not re-acquire it.
type repos struct {
	s      *Store
	locked bool
}

func (r repos) Projects() store.ProjectRepository         { return projectRepo{r} }
func (r repos) Templates() store.TemplateRepository       { return templateRepo{r} }
func (r repos) ModelConfigs() store.ModelConfigRepository { return modelConfigRepo{r} }
func (r repos) Prompts() store.PromptRepository           { return promptRepo{r} }
func (r repos) Tests() store.TestRepository               { return testRepo{r} }

func (r repos) do(op string, fn func(d *data) error) error {
	if !r.locked {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
	}
	if err, ok := r.s.failOn[op]; ok {
		return apperrors.Storage(fmt.Errorf("%s: %w", op, err))
	}
	return fn(r.s.data)
}

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, apperrors.ErrNotFound)
}

func conflict(op string) error {
	return fmt.Errorf("%s: %w", op, apperrors.ErrConflict)
}

type projectRepo struct{ repos }

func projectNameTaken(d *data, name string, exclude uuid.UUID) bool {
	for id, p := range d.projects {
		if p.Name == name && id != exclude {
			return true
		}
	}
	return false
}

func (r projectRepo) Create(ctx context.Context, p *models.Project) error {
	return r.do("CreateProject", func(d *data) error {
		if projectNameTaken(d, p.Name, uuid.Nil) {
			return conflict("insert project")
		}
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		now := time.Now().UTC()
		p.CreatedAt, p.UpdatedAt = now, now
		d.projects[p.ID] = *p
		return nil
	})
}

func (r projectRepo) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var out models.Project
	err := r.do("GetProject", func(d *data) error {
		p, ok := d.projects[id]
		if !ok {
			return notFound("get project")
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r projectRepo) List(ctx context.Context) ([]models.Project, error) {
	out := []models.Project{}
	err := r.do("ListProjects", func(d *data) error {
		for _, p := range d.projects {
			out = append(out, p)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

func (r projectRepo) Update(ctx context.Context, p *models.Project) error {
	return r.do("UpdateProject", func(d *data) error {
		if _, ok := d.projects[p.ID]; !ok {
			return notFound("update project")
		}
		if projectNameTaken(d, p.Name, p.ID) {
			return conflict("update project")
		}
		p.UpdatedAt = time.Now().UTC()
		d.projects[p.ID] = *p
		return nil
	})
}

func (r projectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.do("DeleteProject", func(d *data) error {
		if _, ok := d.projects[id]; !ok {
			return notFound("delete project")
		}
		delete(d.projects, id)
		return nil
	})
}

func (r projectRepo) NameExists(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	var taken bool
	err := r.do("ProjectNameExists", func(d *data) error {
		taken = projectNameTaken(d, name, exclude)
		return nil
	})
	return taken, err
}

type templateRepo struct{ repos }

func templateNameTaken(d *data, name string, exclude uuid.UUID) bool {
	for id, t := range d.templates {
		if t.Name == name && id != exclude {
			return true
		}
	}
	return false
}

func (r templateRepo) Create(ctx context.Context, t *models.PromptTemplate) error {
	return r.do("CreateTemplate", func(d *data) error {
		if templateNameTaken(d, t.Name, uuid.Nil) {
			return conflict("insert prompt template")
		}
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		now := time.Now().UTC()
		t.CreatedAt, t.UpdatedAt = now, now
		t.PromptCount = 0
		d.templates[t.ID] = *t
		return nil
	})
}

func (r templateRepo) Get(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error) {
	var out models.PromptTemplate
	err := r.do("GetTemplate", func(d *data) error {
		t, ok := d.templates[id]
		if !ok {
			return notFound("get prompt template")
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r templateRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.PromptTemplate, error) {
	out := []models.PromptTemplate{}
	err := r.do("ListTemplates", func(d *data) error {
		for _, t := range d.templates {
			if t.ProjectID == projectID {
				out = append(out, t)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

func (r templateRepo) Update(ctx context.Context, t *models.PromptTemplate) error {
	return r.do("UpdateTemplate", func(d *data) error {
		cur, ok := d.templates[t.ID]
		if !ok {
			return notFound("update prompt template")
		}
		if templateNameTaken(d, t.Name, t.ID) {
			return conflict("update prompt template")
		}
		t.PromptCount = cur.PromptCount
		t.UpdatedAt = time.Now().UTC()
		d.templates[t.ID] = *t
		return nil
	})
}

func (r templateRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.do("DeleteTemplate", func(d *data) error {
		if _, ok := d.templates[id]; !ok {
			return notFound("delete prompt template")
		}
		delete(d.templates, id)
		return nil
	})
}

func (r templateRepo) NameExists(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	var taken bool
	err := r.do("TemplateNameExists", func(d *data) error {
		taken = templateNameTaken(d, name, exclude)
		return nil
	})
	return taken, err
}

func (r templateRepo) LockForUpdate(ctx context.Context, id uuid.UUID) error {
	return r.do("LockTemplate", func(d *data) error {
		if _, ok := d.templates[id]; !ok {
			return notFound("lock prompt template")
		}
		return nil
	})
}

func (r templateRepo) AdjustPromptCount(ctx context.Context, id uuid.UUID, delta int) error {
	return r.do("AdjustPromptCount", func(d *data) error {
		t, ok := d.templates[id]
		if !ok {
			return notFound("adjust prompt count")
		}
		t.PromptCount = max(t.PromptCount+delta, 0)
		d.templates[id] = t
		return nil
	})
}

type modelConfigRepo struct{ repos }

func modelNameTaken(d *data, name string, exclude uuid.UUID) bool {
	for id, m := range d.modelConfigs {
		if m.Name == name && id != exclude {
			return true
		}
	}
	return false
}

func (r modelConfigRepo) Create(ctx context.Context, m *models.ModelConfig) error {
	return r.do("CreateModelConfig", func(d *data) error {
		if modelNameTaken(d, m.Name, uuid.Nil) {
			return conflict("insert model config")
		}
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		d.modelConfigs[m.ID] = *m
		return nil
	})
}

func (r modelConfigRepo) Get(ctx context.Context, id uuid.UUID) (*models.ModelConfig, error) {
	var out models.ModelConfig
	err := r.do("GetModelConfig", func(d *data) error {
		m, ok := d.modelConfigs[id]
		if !ok {
			return notFound("get model config")
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r modelConfigRepo) List(ctx context.Context) ([]models.ModelConfig, error) {
	out := []models.ModelConfig{}
	err := r.do("ListModelConfigs", func(d *data) error {
		for _, m := range d.modelConfigs {
			out = append(out, m)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

func (r modelConfigRepo) Update(ctx context.Context, m *models.ModelConfig) error {
	return r.do("UpdateModelConfig", func(d *data) error {
		if _, ok := d.modelConfigs[m.ID]; !ok {
			return notFound("update model config")
		}
		if modelNameTaken(d, m.Name, m.ID) {
			return conflict("update model config")
		}
		d.modelConfigs[m.ID] = *m
		return nil
	})
}

func (r modelConfigRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.do("DeleteModelConfig", func(d *data) error {
		if _, ok := d.modelConfigs[id]; !ok {
			return notFound("delete model config")
		}
		delete(d.modelConfigs, id)
		return nil
	})
}

func (r modelConfigRepo) NameExists(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	var taken bool
	err := r.do("ModelConfigNameExists", func(d *data) error {
		taken = modelNameTaken(d, name, exclude)
		return nil
	})
	return taken, err
}

type promptRepo struct{ repos }

func promptNameTaken(d *data, name string, exclude uuid.UUID) bool {
	for id, p := range d.prompts {
		if p.Name == name && id != exclude {
			return true
		}
	}
	return false
}

func withModelName(d *data, p models.Prompt) models.Prompt {
	p.ModelName = d.modelConfigs[p.ModelID].Name
	return p
}

func (r promptRepo) Create(ctx context.Context, p *models.Prompt) error {
	return r.do("CreatePrompt", func(d *data) error {
		if promptNameTaken(d, p.Name, uuid.Nil) {
			return conflict("insert prompt")
		}
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		p.CreatedAt = time.Now().UTC()
		stored := *p
		stored.ModelName = ""
		d.prompts[p.ID] = stored
		return nil
	})
}

func (r promptRepo) Get(ctx context.Context, id uuid.UUID) (*models.Prompt, error) {
	var out models.Prompt
	err := r.do("GetPrompt", func(d *data) error {
		p, ok := d.prompts[id]
		if !ok {
			return notFound("get prompt")
		}
		out = withModelName(d, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r promptRepo) ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]models.Prompt, error) {
	out := []models.Prompt{}
	err := r.do("ListPrompts", func(d *data) error {
		for _, p := range d.prompts {
			if p.TemplateID == templateID {
				out = append(out, withModelName(d, p))
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Version != out[j].Version {
				return out[i].Version < out[j].Version
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
		return nil
	})
	return out, err
}

func (r promptRepo) Update(ctx context.Context, p *models.Prompt) error {
	return r.do("UpdatePrompt", func(d *data) error {
		cur, ok := d.prompts[p.ID]
		if !ok {
			return notFound("update prompt")
		}
		if promptNameTaken(d, p.Name, p.ID) {
			return conflict("update prompt")
		}
		cur.Name = p.Name
		cur.Notes = p.Notes
		cur.ModelID = p.ModelID
		d.prompts[p.ID] = cur
		return nil
	})
}

func (r promptRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.do("DeletePrompt", func(d *data) error {
		if _, ok := d.prompts[id]; !ok {
			return notFound("delete prompt")
		}
		delete(d.prompts, id)
		return nil
	})
}

func (r promptRepo) NameExists(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	var taken bool
	err := r.do("PromptNameExists", func(d *data) error {
		taken = promptNameTaken(d, name, exclude)
		return nil
	})
	return taken, err
}

func (r promptRepo) MaxVersion(ctx context.Context, templateID uuid.UUID) (float64, error) {
	var v float64
	err := r.do("MaxVersion", func(d *data) error {
		for _, p := range d.prompts {
			if p.TemplateID == templateID && p.Version > v {
				v = p.Version
			}
		}
		return nil
	})
	return v, err
}

func (r promptRepo) CountByModel(ctx context.Context, modelID uuid.UUID) (int, error) {
	var n int
	err := r.do("CountByModel", func(d *data) error {
		for _, p := range d.prompts {
			if p.ModelID == modelID {
				n++
			}
		}
		return nil
	})
	return n, err
}

type testRepo struct{ repos }

func (r testRepo) Create(ctx context.Context, t *models.Test) error {
	return r.do("CreateTest", func(d *data) error {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		t.CreatedAt = time.Now().UTC()
		d.tests[t.ID] = *t
		return nil
	})
}

func (r testRepo) Get(ctx context.Context, id uuid.UUID) (*models.Test, error) {
	var out models.Test
	err := r.do("GetTest", func(d *data) error {
		t, ok := d.tests[id]
		if !ok {
			return notFound("get test")
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r testRepo) Update(ctx context.Context, t *models.Test) error {
	return r.do("UpdateTest", func(d *data) error {
		cur, ok := d.tests[t.ID]
		if !ok {
			return notFound("update test")
		}
		cur.Name = t.Name
		cur.UserInput = t.UserInput
		d.tests[t.ID] = cur
		return nil
	})
}

func (r testRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.do("DeleteTest", func(d *data) error {
		if _, ok := d.tests[id]; !ok {
			return notFound("delete test")
		}
		delete(d.tests, id)
		return nil
	})
}

func (r testRepo) AddAssociation(ctx context.Context, a *models.Association) error {
	return r.do("AddAssociation", func(d *data) error {
		k := assocKey{a.TestID, a.PromptID}
		if _, ok := d.associations[k]; ok {
			return conflict("insert association")
		}
		d.seq++
		d.associations[k] = *a
		d.assocSeq[k] = d.seq
		return nil
	})
}

func (r testRepo) CountAssociations(ctx context.Context, testID uuid.UUID) (int, error) {
	var n int
	err := r.do("CountAssociations", func(d *data) error {
		for k := range d.associations {
			if k.test == testID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r testRepo) AssociationExists(ctx context.Context, testID, promptID uuid.UUID) (bool, error) {
	var ok bool
	err := r.do("AssociationExists", func(d *data) error {
		_, ok = d.associations[assocKey{testID, promptID}]
		return nil
	})
	return ok, err
}

func (r testRepo) DeleteAssociation(ctx context.Context, testID, promptID uuid.UUID) error {
	return r.do("DeleteAssociation", func(d *data) error {
		k := assocKey{testID, promptID}
		if _, ok := d.associations[k]; !ok {
			return notFound("delete association")
		}
		delete(d.associations, k)
		delete(d.assocSeq, k)
		return nil
	})
}

func (r testRepo) DeleteAssociationsByTest(ctx context.Context, testID uuid.UUID) error {
	return r.do("DeleteAssociationsByTest", func(d *data) error {
		for k := range d.associations {
			if k.test == testID {
				delete(d.associations, k)
				delete(d.assocSeq, k)
			}
		}
		return nil
	})
}

func (r testRepo) DeleteAssociationsByPrompt(ctx context.Context, promptID uuid.UUID) error {
	return r.do("DeleteAssociationsByPrompt", func(d *data) error {
		for k := range d.associations {
			if k.prompt == promptID {
				delete(d.associations, k)
				delete(d.assocSeq, k)
			}
		}
		return nil
	})
}

func (r testRepo) ListByPrompt(ctx context.Context, promptID uuid.UUID) ([]models.TestResult, error) {
	out := []models.TestResult{}
	err := r.do("ListByPrompt", func(d *data) error {
		var keys []assocKey
		for k := range d.associations {
			if k.prompt == promptID {
				keys = append(keys, k)
			}
		}
		sort.Slice(keys, func(i, j int) bool { return d.assocSeq[keys[i]] > d.assocSeq[keys[j]] })
		for _, k := range keys {
			t, ok := d.tests[k.test]
			if !ok {
				continue
			}
			out = append(out, models.TestResult{Test: t, Association: d.associations[k]})
		}
		return nil
	})
	return out, err
}
