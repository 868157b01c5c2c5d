package postgres

// GetMigrations returns all embedded migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_enrollments", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_progress_records", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_assessment_scores", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_certificates", UpSQL: migration004Up, DownSQL: migration004Down},
		{Version: 5, Name: "create_integrity_profiles", UpSQL: migration005Up, DownSQL: migration005Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: ENROLLMENTS
// One row per (user, course). The primary key doubles as the uniqueness
// guard behind the "at most one non-dropped enrollment" rule: a dropped row
// is reactivated in place, never duplicated. The CHECK ties completed_at to
// the completed status so the invariant holds even against manual writes.
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS enrollments (
    user_id          TEXT        NOT NULL,
    course_id        TEXT        NOT NULL,
    status           TEXT        NOT NULL
        CHECK (status IN ('active', 'completed', 'dropped', 'expired')),
    progress         INTEGER     NOT NULL DEFAULT 0
        CHECK (progress BETWEEN 0 AND 100),
    enrolled_at      TIMESTAMPTZ NOT NULL,
    last_accessed_at TIMESTAMPTZ NOT NULL,
    completed_at     TIMESTAMPTZ,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, course_id),
    CHECK ((status = 'completed') = (completed_at IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS idx_enrollments_user
    ON enrollments (user_id);

-- Serves the worker's expiry scan.
CREATE INDEX IF NOT EXISTS idx_enrollments_stale
    ON enrollments (last_accessed_at)
    WHERE status = 'active';
`

const migration001Down = `
DROP TABLE IF EXISTS enrollments;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: PROGRESS RECORDS
// One row per content item per learner. Rows are upserted on every
// interaction and never deleted (drop and re-enroll resume from them).
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS progress_records (
    user_id            TEXT        NOT NULL,
    course_id          TEXT        NOT NULL,
    module_id          TEXT        NOT NULL,
    content_id         TEXT        NOT NULL,
    status             TEXT        NOT NULL
        CHECK (status IN ('not_started', 'in_progress', 'completed')),
    progress           INTEGER     NOT NULL
        CHECK (progress BETWEEN 0 AND 100),
    time_spent_seconds BIGINT      NOT NULL DEFAULT 0,
    last_accessed_at   TIMESTAMPTZ NOT NULL,
    completed_at       TIMESTAMPTZ,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, course_id, module_id, content_id)
);

CREATE INDEX IF NOT EXISTS idx_progress_records_course
    ON progress_records (user_id, course_id);
`

const migration002Down = `
DROP TABLE IF EXISTS progress_records;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: ASSESSMENT SCORES
// Append-only attempt history. The unique constraint on the attempt number
// catches double-counting under concurrent submissions for the same pair.
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS assessment_scores (
    id                      BIGSERIAL   PRIMARY KEY,
    user_id                 TEXT        NOT NULL,
    course_id               TEXT        NOT NULL,
    assessment_id           TEXT        NOT NULL,
    score                   INTEGER     NOT NULL,
    max_score               INTEGER     NOT NULL,
    passed                  BOOLEAN     NOT NULL,
    completion_time_seconds BIGINT      NOT NULL DEFAULT 0,
    attempt                 INTEGER     NOT NULL,
    submitted_at            TIMESTAMPTZ NOT NULL,

    UNIQUE (user_id, assessment_id, attempt)
);

CREATE INDEX IF NOT EXISTS idx_assessment_scores_pair
    ON assessment_scores (user_id, assessment_id);
`

const migration003Down = `
DROP TABLE IF EXISTS assessment_scores;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CERTIFICATES
// The primary key on the pair is the idempotency guard for issuance: the
// first insert wins, every concurrent attempt hits the constraint and is
// converted into returning the winner's row.
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
CREATE TABLE IF NOT EXISTS certificates (
    user_id            TEXT        NOT NULL,
    course_id          TEXT        NOT NULL,
    certificate_number TEXT        NOT NULL UNIQUE,
    issued_at          TIMESTAMPTZ NOT NULL,
    download_url       TEXT        NOT NULL,

    PRIMARY KEY (user_id, course_id)
);
`

const migration004Down = `
DROP TABLE IF EXISTS certificates;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 005: INTEGRITY PROFILES
// Owned exclusively by the integrity tracker. Score samples ride in JSONB;
// they are only ever read back whole for re-evaluation, never queried by
// field.
// ══════════════════════════════════════════════════════════════════════════════

const migration005Up = `
CREATE TABLE IF NOT EXISTS integrity_profiles (
    user_id                  TEXT             NOT NULL,
    course_id                TEXT             NOT NULL,
    total_time_spent_seconds BIGINT           NOT NULL DEFAULT 0,
    chapters_completed       INTEGER          NOT NULL DEFAULT 0,
    total_chapters           INTEGER          NOT NULL DEFAULT 0,
    fast_forward_count       INTEGER          NOT NULL DEFAULT 0,
    skip_count               INTEGER          NOT NULL DEFAULT 0,
    assessment_scores        JSONB            NOT NULL DEFAULT '[]'::jsonb,
    avg_time_per_chapter     DOUBLE PRECISION NOT NULL DEFAULT 0,
    flags                    TEXT[]           NOT NULL DEFAULT '{}',
    pattern                  TEXT             NOT NULL DEFAULT 'normal'
        CHECK (pattern IN ('normal', 'suspicious', 'cheating')),
    created_at               TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
    updated_at               TIMESTAMPTZ      NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, course_id)
);

CREATE INDEX IF NOT EXISTS idx_integrity_profiles_pattern
    ON integrity_profiles (pattern)
    WHERE pattern <> 'normal';
`

const migration005Down = `
DROP TABLE IF EXISTS integrity_profiles;
`
