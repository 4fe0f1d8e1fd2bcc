package sqlite

// baseSchema creates every table and index a fresh database needs.
// IF NOT EXISTS everywhere so the same statements double as migration 1.
//
// nodes_fts and node_embeddings_vec are created separately in
// migrations.go, guarded so a build without FTS5/sqlite-vec compiled in
// degrades to empty search results instead of failing startup.
const baseSchema = `
CREATE TABLE IF NOT EXISTS nodes (
    id TEXT NOT NULL,
    version INTEGER NOT NULL,
    session_file TEXT NOT NULL,
    segment_start TEXT NOT NULL,
    segment_end TEXT NOT NULL,
    segment_entry_count INTEGER NOT NULL DEFAULT 0,
    computer TEXT NOT NULL DEFAULT '',
    session_id TEXT NOT NULL DEFAULT '',
    parent_session TEXT,
    type TEXT NOT NULL DEFAULT 'other',
    project TEXT NOT NULL DEFAULT '',
    is_new_project INTEGER NOT NULL DEFAULT 0,
    had_clear_goal INTEGER NOT NULL DEFAULT 0,
    language TEXT,
    frameworks TEXT DEFAULT '[]',
    summary TEXT NOT NULL DEFAULT '',
    outcome TEXT NOT NULL DEFAULT 'abandoned',
    key_decisions TEXT DEFAULT '[]',
    files_touched TEXT DEFAULT '[]',
    tools_used TEXT DEFAULT '[]',
    errors_seen TEXT DEFAULT '[]',
    prompting_wins TEXT DEFAULT '[]',
    prompting_failures TEXT DEFAULT '[]',
    models_used TEXT DEFAULT '[]',
    related_projects TEXT DEFAULT '[]',
    concepts TEXT DEFAULT '[]',
    rlm_used INTEGER NOT NULL DEFAULT 0,
    codemap_available INTEGER NOT NULL DEFAULT 0,
    analysis_log TEXT,
    segment_token_count INTEGER,
    tokens_used INTEGER NOT NULL DEFAULT 0,
    cost REAL NOT NULL DEFAULT 0,
    duration_minutes INTEGER NOT NULL DEFAULT 0,
    timestamp DATETIME NOT NULL,
    analyzed_at DATETIME NOT NULL,
    analyzer_version TEXT NOT NULL DEFAULT '',
    data_file TEXT NOT NULL DEFAULT '',
    previous_versions TEXT DEFAULT '[]',
    signals TEXT,
    relevance_score REAL,
    last_accessed DATETIME,
    archived INTEGER NOT NULL DEFAULT 0,
    importance REAL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (id)
);

CREATE INDEX IF NOT EXISTS idx_nodes_project ON nodes(project);
CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(type);
CREATE INDEX IF NOT EXISTS idx_nodes_outcome ON nodes(outcome);
CREATE INDEX IF NOT EXISTS idx_nodes_timestamp ON nodes(timestamp);
CREATE INDEX IF NOT EXISTS idx_nodes_session_file ON nodes(session_file);
CREATE INDEX IF NOT EXISTS idx_nodes_computer ON nodes(computer);

CREATE TABLE IF NOT EXISTS tags (
    node_id TEXT NOT NULL,
    tag TEXT NOT NULL,
    PRIMARY KEY (node_id, tag),
    FOREIGN KEY (node_id) REFERENCES nodes(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_tags_tag ON tags(tag);

CREATE TABLE IF NOT EXISTS topics (
    node_id TEXT NOT NULL,
    topic TEXT NOT NULL,
    PRIMARY KEY (node_id, topic),
    FOREIGN KEY (node_id) REFERENCES nodes(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_topics_topic ON topics(topic);

CREATE TABLE IF NOT EXISTS lessons (
    id TEXT PRIMARY KEY,
    node_id TEXT NOT NULL,
    level TEXT NOT NULL,
    summary TEXT NOT NULL,
    details TEXT NOT NULL DEFAULT '',
    confidence TEXT NOT NULL DEFAULT 'low',
    actionable INTEGER,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (node_id) REFERENCES nodes(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_lessons_node ON lessons(node_id);
CREATE INDEX IF NOT EXISTS idx_lessons_level ON lessons(level);

CREATE TABLE IF NOT EXISTS lesson_tags (
    lesson_id TEXT NOT NULL,
    tag TEXT NOT NULL,
    PRIMARY KEY (lesson_id, tag),
    FOREIGN KEY (lesson_id) REFERENCES lessons(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_lesson_tags_tag ON lesson_tags(tag);

CREATE TABLE IF NOT EXISTS model_quirks (
    id TEXT PRIMARY KEY,
    node_id TEXT NOT NULL,
    model TEXT NOT NULL,
    observation TEXT NOT NULL,
    frequency TEXT NOT NULL DEFAULT 'once',
    workaround TEXT,
    severity TEXT NOT NULL DEFAULT 'low',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (node_id) REFERENCES nodes(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_quirks_node ON model_quirks(node_id);
CREATE INDEX IF NOT EXISTS idx_quirks_model ON model_quirks(model);

CREATE TABLE IF NOT EXISTS tool_errors (
    id TEXT PRIMARY KEY,
    node_id TEXT NOT NULL,
    tool TEXT NOT NULL,
    error_type TEXT NOT NULL,
    context TEXT NOT NULL DEFAULT '',
    model TEXT,
    was_retried INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (node_id) REFERENCES nodes(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_tool_errors_node ON tool_errors(node_id);
CREATE INDEX IF NOT EXISTS idx_tool_errors_tool ON tool_errors(tool);

CREATE TABLE IF NOT EXISTS daemon_decisions (
    id TEXT PRIMARY KEY,
    node_id TEXT NOT NULL,
    timestamp DATETIME NOT NULL,
    decision TEXT NOT NULL,
    reasoning TEXT NOT NULL DEFAULT '',
    needs_review INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (node_id) REFERENCES nodes(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_daemon_decisions_node ON daemon_decisions(node_id);

CREATE TABLE IF NOT EXISTS edges (
    id TEXT PRIMARY KEY,
    source_node_id TEXT NOT NULL,
    target_node_id TEXT NOT NULL,
    type TEXT NOT NULL,
    metadata TEXT DEFAULT '{}',
    confidence REAL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    created_by TEXT NOT NULL DEFAULT 'boundary',
    FOREIGN KEY (source_node_id) REFERENCES nodes(id) ON DELETE CASCADE,
    FOREIGN KEY (target_node_id) REFERENCES nodes(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_node_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_node_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_edges_unique ON edges(source_node_id, target_node_id, type);

CREATE TABLE IF NOT EXISTS node_embeddings (
    node_id TEXT NOT NULL UNIQUE,
    model_name TEXT NOT NULL,
    input_text TEXT NOT NULL,
    embedding BLOB NOT NULL,
    dim INTEGER NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (node_id) REFERENCES nodes(id) ON DELETE CASCADE
);

-- Auxiliary admin tables, bulk-clearable by clearAllData.
CREATE TABLE IF NOT EXISTS analysis_queue (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_file TEXT NOT NULL,
    queued_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    status TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS failure_patterns (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    pattern TEXT NOT NULL,
    occurrences INTEGER NOT NULL DEFAULT 1,
    last_seen DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS lesson_patterns (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    pattern TEXT NOT NULL,
    occurrences INTEGER NOT NULL DEFAULT 1,
    last_seen DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Narrow key/value table for engine-level settings decided at
-- migration/schema-creation time: embedding model name, vector dimension.
CREATE TABLE IF NOT EXISTS kv_config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
