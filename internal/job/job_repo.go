package job

import (
	"errors"
	"time"

	"github.com/questhall/questhall/internal/profile"
	"github.com/questhall/questhall/internal/stats"
	"gorm.io/gorm"
)

// JobRepository defines the data operations for jobs and applications.
type JobRepository interface {
	CreateJob(j *Job) error
	GetJobByID(id uint) (*Job, error)
	ListOpenJobs(filters ListFilters) ([]Job, error)
	ListAllJobs(limit, offset int) ([]Job, error)
	CountJobs() (int64, error)
	UpdateJob(j *Job) error
	DeleteJob(id uint) error

	RankIDByName(name string) (*uint, error)

	CreateApplication(app *JobApplication) error
	GetApplicationForJob(appID, jobID uint) (*JobApplication, error)
	GetApplicationByJobAndUser(jobID, userID uint) (*JobApplication, error)
	CountAcceptedApplications(jobID uint) (int64, error)
	UpdateApplication(app *JobApplication) error
	ListApplicationsForJob(jobID uint) ([]ApplicationWithProfile, error)
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) CreateJob(j *Job) error {
	return r.db.Create(j).Error
}

func (r *jobRepository) GetJobByID(id uint) (*Job, error) {
	var j Job
	if err := r.db.First(&j, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &j, nil
}

func (r *jobRepository) ListOpenJobs(filters ListFilters) ([]Job, error) {
	query := r.db.Model(&Job{}).Where("status = ?", StatusOpen)

	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.RankID != nil {
		query = query.Where("recommended_rank_id = ?", *filters.RankID)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	var jobs []Job
	if err := query.Order("created_at desc").Limit(limit).Offset(filters.Offset).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepository) ListAllJobs(limit, offset int) ([]Job, error) {
	if limit <= 0 {
		limit = 20
	}
	var jobs []Job
	if err := r.db.Order("created_at desc").Limit(limit).Offset(offset).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepository) CountJobs() (int64, error) {
	var count int64
	err := r.db.Model(&Job{}).Count(&count).Error
	return count, err
}

func (r *jobRepository) UpdateJob(j *Job) error {
	return r.db.Save(j).Error
}

func (r *jobRepository) DeleteJob(id uint) error {
	// Applications go with the job; the store has no cascade configured
	// for the soft delete, so both writes ride one transaction.
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", id).Delete(&JobApplication{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Job{}, id).Error
	})
}

// RankIDByName resolves a difficulty label to a rank id; an unknown
// label yields nil so the filter is simply skipped.
func (r *jobRepository) RankIDByName(name string) (*uint, error) {
	var rank stats.Rank
	if err := r.db.Where("name = ?", name).First(&rank).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	id := rank.ID
	return &id, nil
}

func (r *jobRepository) CreateApplication(app *JobApplication) error {
	return r.db.Create(app).Error
}

func (r *jobRepository) GetApplicationForJob(appID, jobID uint) (*JobApplication, error) {
	var app JobApplication
	if err := r.db.Where("id = ? AND job_id = ?", appID, jobID).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}

func (r *jobRepository) GetApplicationByJobAndUser(jobID, userID uint) (*JobApplication, error) {
	var app JobApplication
	if err := r.db.Where("job_id = ? AND user_id = ?", jobID, userID).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}

func (r *jobRepository) CountAcceptedApplications(jobID uint) (int64, error) {
	var count int64
	err := r.db.Model(&JobApplication{}).Where("job_id = ? AND status = ?", jobID, AppStatusAccepted).Count(&count).Error
	return count, err
}

func (r *jobRepository) UpdateApplication(app *JobApplication) error {
	return r.db.Save(app).Error
}

func (r *jobRepository) ListApplicationsForJob(jobID uint) ([]ApplicationWithProfile, error) {
	type row struct {
		ID          uint
		UserID      uint
		Status      string
		CreatedAt   time.Time
		ProfileID   uint
		DisplayName string
		AvatarURL   string
	}
	var rows []row
	err := r.db.Table("job_applications").
		Select("job_applications.id, job_applications.user_id, job_applications.status, job_applications.created_at, profiles.id as profile_id, profiles.display_name, profiles.avatar_url").
		Joins("LEFT JOIN profiles ON profiles.id = job_applications.user_id AND profiles.deleted_at IS NULL").
		Where("job_applications.job_id = ? AND job_applications.deleted_at IS NULL", jobID).
		Order("job_applications.created_at desc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]ApplicationWithProfile, 0, len(rows))
	for _, rw := range rows {
		out = append(out, ApplicationWithProfile{
			ID:        rw.ID,
			UserID:    rw.UserID,
			Status:    rw.Status,
			CreatedAt: rw.CreatedAt,
			Profile: profile.PublicProfile{
				ID:          rw.ProfileID,
				DisplayName: rw.DisplayName,
				AvatarURL:   rw.AvatarURL,
			},
		})
	}
	return out, nil
}
