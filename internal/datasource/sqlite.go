package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/pushboard/pkg/model"
)

// Schema is the layout SQLiteReader expects. Writers (the collector that
// mirrors the job API) create it with this statement.
const Schema = `
CREATE TABLE IF NOT EXISTS push (
	id             INTEGER PRIMARY KEY,
	revision       TEXT    NOT NULL DEFAULT '',
	author         TEXT    NOT NULL DEFAULT '',
	push_timestamp INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS job (
	id                        INTEGER PRIMARY KEY,
	push_id                   INTEGER NOT NULL REFERENCES push(id),
	job_type_name             TEXT,
	job_type_symbol           TEXT,
	job_group_name            TEXT,
	job_group_symbol          TEXT,
	tier                      INTEGER,
	platform                  TEXT,
	platform_option           TEXT,
	state                     TEXT,
	result                    TEXT,
	failure_classification_id INTEGER,
	ref_data_name             TEXT,
	machine_name              TEXT
);
CREATE INDEX IF NOT EXISTS job_push_idx ON job(push_id, id);
CREATE TABLE IF NOT EXISTS runnable_job (
	push_id          INTEGER NOT NULL,
	ref_data_name    TEXT    NOT NULL,
	job_type_name    TEXT,
	job_type_symbol  TEXT,
	job_group_name   TEXT,
	job_group_symbol TEXT,
	tier             INTEGER,
	platform         TEXT,
	platform_option  TEXT,
	PRIMARY KEY (push_id, ref_data_name)
);
`

// loadConcurrency bounds the per-push job queries issued by LoadPushes.
const loadConcurrency = 4

// SQLiteReader provides read access to a push database
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			logger.Printf("sqlite %s: %s: %v", source.Path, pragma, err)
		}
	}

	return &SQLiteReader{db: db, path: source.Path}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Path returns the database file.
func (r *SQLiteReader) Path() string { return r.path }

// CountPushes returns the number of pushes in the database.
func (r *SQLiteReader) CountPushes() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM push").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting pushes: %w", err)
	}
	return n, nil
}

// LoadPushes reads every push, newest first, with its jobs placed into
// platforms and groups. Job queries run concurrently, one push per query.
func (r *SQLiteReader) LoadPushes(ctx context.Context) ([]*model.Push, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, revision, author, push_timestamp
		FROM push
		ORDER BY push_timestamp DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying pushes: %w", err)
	}
	defer rows.Close()

	var pushes []*model.Push
	for rows.Next() {
		p := &model.Push{}
		if err := rows.Scan(&p.ID, &p.Revision, &p.Author, &p.PushTimestamp); err != nil {
			return nil, fmt.Errorf("scanning push: %w", err)
		}
		pushes = append(pushes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pushes: %w", err)
	}
	rows.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for _, p := range pushes {
		g.Go(func() error {
			jobs, err := r.FetchJobs(gctx, p.ID)
			if err != nil {
				return err
			}
			for _, j := range jobs {
				if _, err := p.PlaceJob(j); err != nil {
					logger.Printf("push %d: skipping job: %v", p.ID, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pushes, nil
}

// FetchJobs reads the current jobs of one push, ordered by id.
func (r *SQLiteReader) FetchJobs(ctx context.Context, pushID int64) ([]*model.Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, job_type_name, job_type_symbol, job_group_name,
			job_group_symbol, tier, platform, platform_option,
			state, result, failure_classification_id, ref_data_name,
			machine_name
		FROM job
		WHERE push_id = ?
		ORDER BY id
	`, pushID)
	if err != nil {
		return nil, fmt.Errorf("querying jobs for push %d: %w", pushID, err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		var (
			typeName, typeSymbol, groupName, groupSymbol sql.NullString
			platform, option, state, result              sql.NullString
			refData, machine                             sql.NullString
			tier, classification                         sql.NullInt64
		)
		j := &model.Job{PushID: pushID}
		err := rows.Scan(
			&j.ID, &typeName, &typeSymbol, &groupName,
			&groupSymbol, &tier, &platform, &option,
			&state, &result, &classification, &refData,
			&machine,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning job for push %d: %w", pushID, err)
		}
		j.JobTypeName = typeName.String
		j.JobTypeSymbol = typeSymbol.String
		j.JobGroupName = groupName.String
		j.JobGroupSymbol = groupSymbol.String
		j.Tier = int(tier.Int64)
		j.Platform = platform.String
		j.PlatformOption = option.String
		j.State = model.JobState(strings.ToLower(state.String))
		j.Result = strings.ToLower(result.String)
		j.FailureClassificationID = int(classification.Int64)
		j.RefDataName = refData.String
		j.MachineName = machine.String
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating jobs for push %d: %w", pushID, err)
	}
	return jobs, nil
}

// FetchRunnable reads the runnable jobs of one push. Runnable jobs have no
// id of their own in the database; they are numbered from -1 downwards so
// they never collide with real job ids.
func (r *SQLiteReader) FetchRunnable(ctx context.Context, pushID int64) ([]*model.Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			ref_data_name, job_type_name, job_type_symbol, job_group_name,
			job_group_symbol, tier, platform, platform_option
		FROM runnable_job
		WHERE push_id = ?
		ORDER BY ref_data_name
	`, pushID)
	if err != nil {
		return nil, fmt.Errorf("querying runnable jobs for push %d: %w", pushID, err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		var (
			typeName, typeSymbol, groupName, groupSymbol sql.NullString
			platform, option                             sql.NullString
			tier                                         sql.NullInt64
		)
		j := &model.Job{
			ID:     -int64(len(jobs) + 1),
			PushID: pushID,
			State:  model.StateRunnable,
		}
		err := rows.Scan(
			&j.RefDataName, &typeName, &typeSymbol, &groupName,
			&groupSymbol, &tier, &platform, &option,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning runnable job for push %d: %w", pushID, err)
		}
		j.JobTypeName = typeName.String
		j.JobTypeSymbol = typeSymbol.String
		j.JobGroupName = groupName.String
		j.JobGroupSymbol = groupSymbol.String
		j.Tier = int(tier.Int64)
		j.Platform = platform.String
		j.PlatformOption = option.String
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runnable jobs for push %d: %w", pushID, err)
	}
	return jobs, nil
}
