package ledger

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbukum/automl/database"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/evaluation"
	"github.com/kbukum/automl/problem"
)

// SearchRow is the ledger_searches table: one row per saved search.
type SearchRow struct {
	SearchID             string `gorm:"primaryKey"`
	Version              int
	Problem              string
	Objective            string
	GreaterIsBetter      bool
	AdditionalObjectives string
	Batches              int
	ElapsedNanos         int64
	SavedAt              time.Time
	SavedBy              string
}

func (SearchRow) TableName() string { return "ledger_searches" }

// ResultRow is the ledger_results table. Scalar columns make results
// queryable; the configuration and folds are stored as JSON.
type ResultRow struct {
	SearchID      string `gorm:"primaryKey"`
	ResultID      int    `gorm:"primaryKey;autoIncrement:false"`
	Batch         int    `gorm:"index"`
	Name          string
	Family        string
	Fingerprint   string `gorm:"index"`
	Status        string
	ErrorKind     string
	ErrorMessage  string
	MeanScore     float64
	StdScore      float64
	FailedFolds   int
	TrainingNanos int64
	Configuration string
	Folds         string
}

func (ResultRow) TableName() string { return "ledger_results" }

// SQLStore keeps snapshots in two relational tables.
type SQLStore struct {
	db *database.DB
}

// NewSQLStore migrates the ledger tables.
func NewSQLStore(db *database.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&SearchRow{}, &ResultRow{}); err != nil {
		return nil, err
	}
	return &SQLStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	search, err := toSearchRow(snap)
	if err != nil {
		return err
	}
	rows := make([]ResultRow, len(snap.Results))
	for i, r := range snap.Results {
		if rows[i], err = toResultRow(snap.SearchID, r); err != nil {
			return err
		}
	}

	return s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&search).Error; err != nil {
			return database.FromDatabase(err, "ledger search")
		}
		if err := tx.Where("search_id = ?", snap.SearchID).Delete(&ResultRow{}).Error; err != nil {
			return database.FromDatabase(err, "ledger results")
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 100).Error; err != nil {
			return database.FromDatabase(err, "ledger results")
		}
		return nil
	})
}

func (s *SQLStore) Load(ctx context.Context, searchID string) (*Snapshot, error) {
	var search SearchRow
	if err := s.db.WithContext(ctx).First(&search, "search_id = ?", searchID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("ledger snapshot", searchID)
		}
		return nil, database.FromDatabase(err, "ledger search")
	}
	var rows []ResultRow
	if err := s.db.WithContext(ctx).Where("search_id = ?", searchID).Order("result_id").Find(&rows).Error; err != nil {
		return nil, database.FromDatabase(err, "ledger results")
	}

	snap, err := fromSearchRow(search)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		r, err := fromResultRow(row)
		if err != nil {
			return nil, err
		}
		r.Objective = snap.Objective
		snap.Results = append(snap.Results, r)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *SQLStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&SearchRow{}).Order("search_id").Pluck("search_id", &ids).Error; err != nil {
		return nil, database.FromDatabase(err, "ledger search")
	}
	return ids, nil
}

func (s *SQLStore) Delete(ctx context.Context, searchID string) error {
	return s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("search_id = ?", searchID).Delete(&ResultRow{}).Error; err != nil {
			return database.FromDatabase(err, "ledger results")
		}
		if err := tx.Where("search_id = ?", searchID).Delete(&SearchRow{}).Error; err != nil {
			return database.FromDatabase(err, "ledger search")
		}
		return nil
	})
}

func toSearchRow(s *Snapshot) (SearchRow, error) {
	prob, err := json.Marshal(s.Problem)
	if err != nil {
		return SearchRow{}, errors.Storage("encode problem", err)
	}
	additional, err := json.Marshal(s.AdditionalObjectives)
	if err != nil {
		return SearchRow{}, errors.Storage("encode objectives", err)
	}
	return SearchRow{
		SearchID:             s.SearchID,
		Version:              s.Version,
		Problem:              string(prob),
		Objective:            s.Objective,
		GreaterIsBetter:      s.GreaterIsBetter,
		AdditionalObjectives: string(additional),
		Batches:              s.Batches,
		ElapsedNanos:         int64(s.Elapsed),
		SavedAt:              s.SavedAt,
		SavedBy:              s.SavedBy,
	}, nil
}

func fromSearchRow(row SearchRow) (*Snapshot, error) {
	s := &Snapshot{
		Version:         row.Version,
		SearchID:        row.SearchID,
		Objective:       row.Objective,
		GreaterIsBetter: row.GreaterIsBetter,
		Batches:         row.Batches,
		Elapsed:         time.Duration(row.ElapsedNanos),
		SavedAt:         row.SavedAt,
		SavedBy:         row.SavedBy,
	}
	var prob problem.Config
	if err := json.Unmarshal([]byte(row.Problem), &prob); err != nil {
		return nil, errors.Storage("decode problem", err)
	}
	s.Problem = prob
	if err := json.Unmarshal([]byte(row.AdditionalObjectives), &s.AdditionalObjectives); err != nil {
		return nil, errors.Storage("decode objectives", err)
	}
	return s, nil
}

func toResultRow(searchID string, r *evaluation.Result) (ResultRow, error) {
	cfg, err := json.Marshal(r.Configuration)
	if err != nil {
		return ResultRow{}, errors.Storage("encode configuration", err)
	}
	folds, err := json.Marshal(r.Folds)
	if err != nil {
		return ResultRow{}, errors.Storage("encode folds", err)
	}
	return ResultRow{
		SearchID:      searchID,
		ResultID:      r.ID,
		Batch:         r.Batch,
		Name:          r.Configuration.Name,
		Family:        string(r.Configuration.Family),
		Fingerprint:   r.Fingerprint,
		Status:        string(r.Status),
		ErrorKind:     string(r.ErrorKind),
		ErrorMessage:  r.ErrorMessage,
		MeanScore:     r.MeanScore,
		StdScore:      r.StdScore,
		FailedFolds:   r.FailedFolds,
		TrainingNanos: int64(r.TrainingTime),
		Configuration: string(cfg),
		Folds:         string(folds),
	}, nil
}

func fromResultRow(row ResultRow) (*evaluation.Result, error) {
	r := &evaluation.Result{
		ID:           row.ResultID,
		Batch:        row.Batch,
		Fingerprint:  row.Fingerprint,
		MeanScore:    row.MeanScore,
		StdScore:     row.StdScore,
		FailedFolds:  row.FailedFolds,
		TrainingTime: time.Duration(row.TrainingNanos),
		Status:       evaluation.Status(row.Status),
		ErrorKind:    evaluation.ErrorKind(row.ErrorKind),
		ErrorMessage: row.ErrorMessage,
	}
	if err := json.Unmarshal([]byte(row.Configuration), &r.Configuration); err != nil {
		return nil, errors.Storage("decode configuration", err)
	}
	if err := json.Unmarshal([]byte(row.Folds), &r.Folds); err != nil {
		return nil, errors.Storage("decode folds", err)
	}
	return r, nil
}

var _ Store = (*SQLStore)(nil)
