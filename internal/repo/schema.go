package repo

// Схема PostgreSQL.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		working_dir TEXT NOT NULL,
		metadata    JSONB NOT NULL DEFAULT '{}',
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id          UUID PRIMARY KEY,
		project_id  TEXT REFERENCES projects(id),
		tool_name   TEXT NOT NULL,
		step_name   TEXT,
		params      JSONB NOT NULL DEFAULT '{}',
		command     JSONB NOT NULL DEFAULT '[]',
		status      TEXT NOT NULL,
		pid         INTEGER,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		exit_code   INTEGER,
		stdout_path TEXT NOT NULL,
		stderr_path TEXT NOT NULL,
		log_path    TEXT NOT NULL,
		outputs     JSONB NOT NULL DEFAULT '{}',
		working_dir TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS jobs_project_idx ON jobs (project_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS jobs_status_idx ON jobs (status)`,
	`CREATE TABLE IF NOT EXISTS pipeline_steps (
		project_id  TEXT NOT NULL REFERENCES projects(id),
		step_name   TEXT NOT NULL,
		step_order  INTEGER NOT NULL,
		job_id      UUID REFERENCES jobs(id),
		status      TEXT NOT NULL DEFAULT 'pending',
		is_optional BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (project_id, step_name)
	)`,
}

// Схема SQLite. Время хранится текстом в фиксированном формате UTC,
// чтобы лексикографический порядок совпадал с хронологическим.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		working_dir TEXT NOT NULL,
		metadata    TEXT NOT NULL DEFAULT '{}',
		created_at  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id          TEXT PRIMARY KEY,
		project_id  TEXT REFERENCES projects(id),
		tool_name   TEXT NOT NULL,
		step_name   TEXT,
		params      TEXT NOT NULL DEFAULT '{}',
		command     TEXT NOT NULL DEFAULT '[]',
		status      TEXT NOT NULL,
		pid         INTEGER,
		started_at  TEXT NOT NULL,
		finished_at TEXT,
		exit_code   INTEGER,
		stdout_path TEXT NOT NULL,
		stderr_path TEXT NOT NULL,
		log_path    TEXT NOT NULL,
		outputs     TEXT NOT NULL DEFAULT '{}',
		working_dir TEXT NOT NULL,
		created_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS jobs_project_idx ON jobs (project_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS jobs_status_idx ON jobs (status)`,
	`CREATE TABLE IF NOT EXISTS pipeline_steps (
		project_id  TEXT NOT NULL REFERENCES projects(id),
		step_name   TEXT NOT NULL,
		step_order  INTEGER NOT NULL,
		job_id      TEXT REFERENCES jobs(id),
		status      TEXT NOT NULL DEFAULT 'pending',
		is_optional INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (project_id, step_name)
	)`,
}
