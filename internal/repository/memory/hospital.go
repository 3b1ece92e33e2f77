package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/visitq-api/internal/model"
	"github.com/jwalitptl/visitq-api/internal/repository"
	apperrors "github.com/jwalitptl/visitq-api/pkg/errors"
)

type HospitalRepository struct {
	s *Store
}

func NewHospitalRepository(s *Store) *HospitalRepository {
	return &HospitalRepository{s: s}
}

func (r *HospitalRepository) BeginTx(ctx context.Context) (repository.Tx, error) {
	return r.s.begin(), nil
}

func (r *HospitalRepository) CreateHospital(ctx context.Context, hospital *model.Hospital) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	hospital.ID = uuid.New()
	hospital.CreatedAt = time.Now()
	hospital.UpdatedAt = hospital.CreatedAt
	cp := *hospital
	r.s.st.hospitals[cp.ID] = &cp
	return nil
}

func (r *HospitalRepository) GetHospital(ctx context.Context, id uuid.UUID) (*model.Hospital, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	hospital, ok := r.s.st.hospitals[id]
	if !ok {
		return nil, apperrors.NotFound("hospital", nil)
	}
	cp := *hospital
	return &cp, nil
}

func (r *HospitalRepository) CreateDepartmentTx(ctx context.Context, tx repository.Tx, department *model.Department) error {
	department.ID = uuid.New()
	department.CreatedAt = time.Now()
	department.UpdatedAt = department.CreatedAt
	cp := *department
	r.s.st.departments[queueKey{cp.HospitalID, cp.ID}] = &cp
	return nil
}

func (r *HospitalRepository) GetDepartment(ctx context.Context, hospitalID, departmentID uuid.UUID) (*model.Department, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	department, ok := r.s.st.departments[queueKey{hospitalID, departmentID}]
	if !ok {
		return nil, apperrors.NotFound("department", nil)
	}
	cp := *department
	return &cp, nil
}

func (r *HospitalRepository) ListDepartments(ctx context.Context, hospitalID uuid.UUID) ([]*model.Department, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Department
	for _, department := range r.s.st.departments {
		if department.HospitalID == hospitalID {
			cp := *department
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *HospitalRepository) DeleteDepartment(ctx context.Context, hospitalID, departmentID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := queueKey{hospitalID, departmentID}
	if _, ok := r.s.st.departments[k]; !ok {
		return apperrors.NotFound("department", nil)
	}
	delete(r.s.st.departments, k)
	delete(r.s.st.queues, k)
	return nil
}
