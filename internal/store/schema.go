package store

// CurrentSchemaVersion is the schema version this build understands.
// Migrations are forward-only and numbered; opening a database whose
// recorded version is greater than this is refused (SchemaMismatchError).
const CurrentSchemaVersion = 1

// schemaDDL mirrors the column/table shape spec.md §4.5 sketches,
// grounded on rekal-dev-rekal-cli's db/schema.go for the VARCHAR
// PK/FK/UNIQUE conventions.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS schema_meta (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
	id VARCHAR PRIMARY KEY,
	name VARCHAR NOT NULL UNIQUE,
	description VARCHAR,
	working_directory VARCHAR,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	session_count INTEGER NOT NULL DEFAULT 0,
	total_tokens INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS chat_sessions (
	id VARCHAR PRIMARY KEY,
	provider VARCHAR NOT NULL,
	project_id VARCHAR REFERENCES projects(id),
	project_name VARCHAR,
	file_path VARCHAR NOT NULL,
	file_hash VARCHAR NOT NULL,
	start_time TIMESTAMP NOT NULL,
	end_time TIMESTAMP,
	message_count INTEGER NOT NULL DEFAULT 0,
	token_count INTEGER,
	state VARCHAR NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE(provider, file_hash)
);

CREATE TABLE IF NOT EXISTS messages (
	id VARCHAR PRIMARY KEY,
	session_id VARCHAR NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
	role VARCHAR NOT NULL,
	content TEXT NOT NULL,
	timestamp TIMESTAMP NOT NULL,
	sequence_number INTEGER NOT NULL,
	token_count INTEGER,
	tool_uses TEXT,
	tool_results TEXT,
	tool_operation_id VARCHAR,
	UNIQUE(session_id, sequence_number)
);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
	content, content='messages', content_rowid='rowid'
);

CREATE TABLE IF NOT EXISTS tool_operations (
	id VARCHAR PRIMARY KEY,
	session_id VARCHAR NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
	tool_use_id VARCHAR NOT NULL,
	tool_name VARCHAR NOT NULL,
	timestamp TIMESTAMP NOT NULL,
	file_metadata TEXT,
	success BOOLEAN,
	result_summary VARCHAR,
	raw_input TEXT,
	raw_result TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tool_operations_session_ts ON tool_operations(session_id, timestamp);

CREATE TABLE IF NOT EXISTS detected_turns (
	id VARCHAR PRIMARY KEY,
	session_id VARCHAR NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
	turn_number INTEGER NOT NULL,
	start_sequence INTEGER NOT NULL,
	end_sequence INTEGER NOT NULL,
	payload TEXT NOT NULL,
	UNIQUE(session_id, turn_number)
);

CREATE TABLE IF NOT EXISTS turn_summaries (
	id VARCHAR PRIMARY KEY,
	session_id VARCHAR NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
	turn_number INTEGER NOT NULL,
	start_sequence INTEGER NOT NULL,
	end_sequence INTEGER NOT NULL,
	user_intent VARCHAR,
	assistant_action VARCHAR,
	summary TEXT,
	turn_type VARCHAR,
	key_topics TEXT,
	decisions_made TEXT,
	code_concepts TEXT,
	model_used VARCHAR,
	prompt_version INTEGER NOT NULL,
	generated_at TIMESTAMP NOT NULL,
	UNIQUE(session_id, turn_number)
);

CREATE TABLE IF NOT EXISTS session_summaries (
	session_id VARCHAR PRIMARY KEY REFERENCES chat_sessions(id) ON DELETE CASCADE,
	title VARCHAR,
	summary TEXT,
	primary_goal VARCHAR,
	outcome VARCHAR,
	technologies_used TEXT,
	generated_at TIMESTAMP NOT NULL
);
`
