package store

// schemaVersion is compared against meta.schema_version on open. A
// mismatch drops every data table and the FTS mirror and recreates them
// empty. Bump on any table shape change.
const schemaVersion = "2"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS meta (
    key                  TEXT PRIMARY KEY,
    value                TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
    project_id           TEXT PRIMARY KEY,
    provider             TEXT NOT NULL,
    name                 TEXT NOT NULL,
    path                 TEXT NOT NULL DEFAULT '',
    session_count        INTEGER NOT NULL DEFAULT 0,
    last_activity        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sessions (
    session_id           TEXT PRIMARY KEY,
    project_id           TEXT NOT NULL REFERENCES projects(project_id),
    provider             TEXT NOT NULL,
    file_path            TEXT NOT NULL UNIQUE,
    title                TEXT NOT NULL DEFAULT '',
    model_names          TEXT NOT NULL DEFAULT '',
    started_at           INTEGER NOT NULL DEFAULT 0,
    ended_at             INTEGER NOT NULL DEFAULT 0,
    duration_ms          INTEGER NOT NULL DEFAULT 0,
    git_branch           TEXT NOT NULL DEFAULT '',
    cwd                  TEXT NOT NULL DEFAULT '',
    is_subagent          INTEGER NOT NULL DEFAULT 0,
    message_count        INTEGER NOT NULL DEFAULT 0,
    token_input          INTEGER NOT NULL DEFAULT 0,
    token_output         INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
    message_id           INTEGER PRIMARY KEY AUTOINCREMENT,
    source_id            TEXT NOT NULL,
    session_id           TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
    provider             TEXT NOT NULL,
    category             TEXT NOT NULL,
    content              TEXT NOT NULL DEFAULT '',
    created_at           INTEGER NOT NULL DEFAULT 0,
    token_input          INTEGER,
    token_output         INTEGER,
    op_duration_ms       INTEGER,
    op_duration_source   TEXT,
    op_duration_confidence TEXT
);

CREATE TABLE IF NOT EXISTS tool_calls (
    message_id           INTEGER PRIMARY KEY REFERENCES messages(message_id) ON DELETE CASCADE,
    name                 TEXT NOT NULL DEFAULT '',
    input                TEXT NOT NULL DEFAULT '',
    result               TEXT NOT NULL DEFAULT '',
    duration_ms          INTEGER
);

CREATE TABLE IF NOT EXISTS bookmarks (
    bookmark_id          INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id           TEXT NOT NULL,
    session_id           TEXT NOT NULL,
    message_id           INTEGER NOT NULL,
    message_source_id    TEXT NOT NULL,
    created_at           INTEGER NOT NULL,
    is_orphaned          INTEGER NOT NULL DEFAULT 0,
    UNIQUE (session_id, message_source_id)
);

CREATE TABLE IF NOT EXISTS indexed_files (
    file_path            TEXT PRIMARY KEY,
    size_bytes           INTEGER NOT NULL,
    mtime_ms             INTEGER NOT NULL,
    indexed_at           INTEGER NOT NULL DEFAULT 0
);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
    content,
    message_id UNINDEXED,
    session_id UNINDEXED,
    provider UNINDEXED,
    category UNINDEXED
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at, message_id);
CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_id);
CREATE INDEX IF NOT EXISTS idx_bookmarks_project ON bookmarks(project_id);
`

// dropSQL removes everything schemaSQL creates. Used on schema version
// mismatch before recreating from scratch.
const dropSQL = `
DROP TABLE IF EXISTS messages_fts;
DROP TABLE IF EXISTS bookmarks;
DROP TABLE IF EXISTS tool_calls;
DROP TABLE IF EXISTS messages;
DROP TABLE IF EXISTS sessions;
DROP TABLE IF EXISTS projects;
DROP TABLE IF EXISTS indexed_files;
DROP TABLE IF EXISTS meta;
`
