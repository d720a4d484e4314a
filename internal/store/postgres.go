package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"

	"github.com/jim-wyatt/saas-tesa/internal/model"
)

// upsertLockKey names the transaction-scoped advisory lock that serialises
// upsert batches, so counter deltas are computed against a stable view.
const upsertLockKey int64 = 0x7e5a_f1d1

type findingRecord struct {
	ID            uint64         `gorm:"primaryKey;autoIncrement"`
	FindingUID    string         `gorm:"size:128;uniqueIndex;not null"`
	Standard      string         `gorm:"size:32"`
	SchemaVersion string         `gorm:"size:32"`
	Status        string         `gorm:"size:32"`
	SeverityID    int            `gorm:"not null"`
	Severity      string         `gorm:"size:32"`
	RiskScore     int            `gorm:"not null"`
	Title         string         `gorm:"type:text"`
	Description   string         `gorm:"type:text"`
	CategoryName  string         `gorm:"size:128"`
	ClassName     string         `gorm:"size:128"`
	TypeName      string         `gorm:"size:128"`
	Domain        string         `gorm:"size:64;index"`
	ActivityName  string         `gorm:"size:64"`
	Time          time.Time      `gorm:"index"`
	Source        string         `gorm:"size:128;index"`
	Resource      model.Resource `gorm:"embedded;embeddedPrefix:resource_"`
	CVE           pq.StringArray `gorm:"column:references_cve;type:text[]"`
	CWE           pq.StringArray `gorm:"column:references_cwe;type:text[]"`
	OWASP         pq.StringArray `gorm:"column:references_owasp;type:text[]"`
	MitreAttack   pq.StringArray `gorm:"column:references_mitre_attack;type:text[]"`
	RawData       jsonMap        `gorm:"type:jsonb"`
}

func (findingRecord) TableName() string { return "security_findings" }

type severityCount struct {
	SeverityID int `gorm:"primaryKey;autoIncrement:false"`
	Count      int `gorm:"not null;default:0"`
}

func (severityCount) TableName() string { return "finding_severity_counts" }

// jsonMap stores raw_data verbatim as jsonb.
type jsonMap map[string]any

func (m jsonMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(m))
}

func (m *jsonMap) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = jsonMap{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Newf("store: cannot scan %T into raw_data", src)
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return errors.Wrap(err, "store: decode raw_data")
	}
	*m = out
	return nil
}

func toRecord(f model.SecurityFinding) findingRecord {
	f = f.Clone()
	return findingRecord{
		FindingUID:    f.FindingUID,
		Standard:      f.Standard,
		SchemaVersion: f.SchemaVersion,
		Status:        string(f.Status),
		SeverityID:    f.SeverityID,
		Severity:      string(f.Severity),
		RiskScore:     f.RiskScore,
		Title:         f.Title,
		Description:   f.Description,
		CategoryName:  f.CategoryName,
		ClassName:     f.ClassName,
		TypeName:      f.TypeName,
		Domain:        f.Domain,
		ActivityName:  f.ActivityName,
		Time:          model.CanonicalTime(f.Time),
		Source:        f.Source,
		Resource:      f.Resource,
		CVE:           f.References.CVE,
		CWE:           f.References.CWE,
		OWASP:         f.References.OWASP,
		MitreAttack:   f.References.MitreAttack,
		RawData:       f.RawData,
	}
}

func fromRecord(r findingRecord) model.SecurityFinding {
	return model.SecurityFinding{
		FindingUID:    r.FindingUID,
		Standard:      r.Standard,
		SchemaVersion: r.SchemaVersion,
		Status:        model.Status(r.Status),
		SeverityID:    r.SeverityID,
		Severity:      model.Severity(r.Severity),
		RiskScore:     r.RiskScore,
		Title:         r.Title,
		Description:   r.Description,
		CategoryName:  r.CategoryName,
		ClassName:     r.ClassName,
		TypeName:      r.TypeName,
		Domain:        r.Domain,
		ActivityName:  r.ActivityName,
		Time:          r.Time.UTC(),
		Source:        r.Source,
		Resource:      r.Resource,
		References: model.References{
			CVE:         []string(r.CVE),
			CWE:         []string(r.CWE),
			OWASP:       []string(r.OWASP),
			MitreAttack: []string(r.MitreAttack),
		},
		RawData: map[string]any(r.RawData),
	}.Clone()
}

// PostgresStore persists findings in postgres. Bucket counts live in their
// own table and are adjusted inside each upsert transaction.
type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgres connects with lib/pq, verifies the connection and hands it
// to gorm.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "store: open postgres")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, errors.WithHint(errors.Wrap(err, "store: ping postgres"),
			"check TESA_DATABASE_URL or the TESA_DB_* settings")
	}
	return NewPostgresStore(sqlDB)
}

// NewPostgresStore wraps an existing connection.
func NewPostgresStore(sqlDB *sql.DB) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "store: gorm open")
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Kind() string { return "postgresql" }

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Init migrates the schema and rebuilds the bucket counters from the
// stored findings.
func (s *PostgresStore) Init(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(&findingRecord{}, &severityCount{}); err != nil {
		return errors.Wrap(err, "store: migrate")
	}
	return s.rebuildCounters(ctx)
}

// rebuildCounters recounts the stored findings per severity id and writes
// every id from MinSeverityID to MaxSeverityID, zero included.
func (s *PostgresStore) rebuildCounters(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", upsertLockKey).Error; err != nil {
			return errors.Wrap(err, "store: acquire upsert lock")
		}
		var rows []severityCount
		err := tx.Model(&findingRecord{}).
			Select("severity_id, count(*) AS count").
			Group("severity_id").
			Scan(&rows).Error
		if err != nil {
			return errors.Wrap(err, "store: count findings")
		}
		counts := make(map[int]int, model.MaxSeverityID)
		for _, r := range rows {
			counts[r.SeverityID] = r.Count
		}
		seed := make([]severityCount, 0, model.MaxSeverityID)
		for id := model.MinSeverityID; id <= model.MaxSeverityID; id++ {
			seed = append(seed, severityCount{SeverityID: id, Count: counts[id]})
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "severity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"count"}),
		}).Create(&seed).Error
		return errors.Wrap(err, "store: seed counters")
	})
}

func (s *PostgresStore) Upsert(ctx context.Context, findings []model.SecurityFinding) error {
	if len(findings) == 0 {
		return nil
	}
	// A uid repeated within the batch collapses to its last value; postgres
	// rejects one INSERT touching the same conflict key twice.
	order := make([]string, 0, len(findings))
	latest := make(map[string]model.SecurityFinding, len(findings))
	for _, f := range findings {
		if _, seen := latest[f.FindingUID]; !seen {
			order = append(order, f.FindingUID)
		}
		latest[f.FindingUID] = f
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", upsertLockKey).Error; err != nil {
			return errors.Wrap(err, "acquire upsert lock")
		}

		var prior []struct {
			FindingUID string
			SeverityID int
		}
		err := tx.Model(&findingRecord{}).
			Select("finding_uid", "severity_id").
			Where("finding_uid IN ?", order).
			Find(&prior).Error
		if err != nil {
			return errors.Wrap(err, "load prior severities")
		}

		deltas := map[int]int{}
		for _, p := range prior {
			deltas[p.SeverityID]--
		}
		records := make([]findingRecord, 0, len(order))
		for _, uid := range order {
			f := latest[uid]
			deltas[f.SeverityID]++
			records = append(records, toRecord(f))
		}

		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "finding_uid"}},
			UpdateAll: true,
		}).Create(&records).Error
		if err != nil {
			return errors.Wrap(err, "write findings")
		}

		ids := make([]int, 0, len(deltas))
		for id, d := range deltas {
			if d != 0 {
				ids = append(ids, id)
			}
		}
		sort.Ints(ids)
		for _, id := range ids {
			err := tx.Model(&severityCount{}).
				Where("severity_id = ?", id).
				UpdateColumn("count", gorm.Expr("count + ?", deltas[id])).Error
			if err != nil {
				return errors.Wrapf(err, "adjust counter for severity %d", id)
			}
		}
		return nil
	})
	if err != nil {
		otelzap.Ctx(ctx).Error("Finding upsert rolled back",
			zap.Int("batch_size", len(findings)),
			zap.Error(err))
		return errors.Wrap(err, "store: upsert")
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]model.SecurityFinding, error) {
	if limit <= 0 {
		return []model.SecurityFinding{}, nil
	}
	var records []findingRecord
	err := s.db.WithContext(ctx).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "time"}, Desc: true},
			{Column: clause.Column{Name: "id"}, Desc: true},
		}}).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "store: list findings")
	}
	out := make([]model.SecurityFinding, 0, len(records))
	for _, r := range records {
		out = append(out, fromRecord(r))
	}
	return out, nil
}

func (s *PostgresStore) Summary(ctx context.Context) (model.Summary, error) {
	var rows []severityCount
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return model.Summary{}, errors.Wrap(err, "store: read counters")
	}
	var summary model.Summary
	for _, r := range rows {
		summary.Add(r.SeverityID, r.Count)
	}
	return summary, nil
}
