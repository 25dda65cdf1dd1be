package storage

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    start_time DATETIME NOT NULL,
    source     TEXT     NOT NULL,
    config     TEXT
);

CREATE TABLE IF NOT EXISTS maps (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id      INTEGER NOT NULL REFERENCES sessions (id),
    timestamp_us    INTEGER NOT NULL,
    distances       BLOB    NOT NULL,
    min_distance_cm INTEGER NOT NULL,
    max_distance_cm INTEGER NOT NULL,
    increment_f     REAL    NOT NULL,
    angle_offset    REAL    NOT NULL
);`

	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_maps_session_time ON maps (session_id, timestamp_us);`

	insertSessionSQL = `
INSERT INTO sessions (start_time, source, config)
VALUES (CURRENT_TIMESTAMP, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    source,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    source,
    config
FROM sessions
ORDER BY id`

	insertMapSQL = `
INSERT INTO maps (session_id,
                  timestamp_us,
                  distances,
                  min_distance_cm,
                  max_distance_cm,
                  increment_f,
                  angle_offset)
VALUES `

	selectMapsSQL = `
SELECT
    id,
    timestamp_us,
    distances,
    min_distance_cm,
    max_distance_cm,
    increment_f,
    angle_offset
FROM maps
WHERE
    session_id = ?
    AND timestamp_us BETWEEN ? AND ?
ORDER BY timestamp_us`

	selectTimeBoundsSQL = `
SELECT
    MIN(timestamp_us),
    MAX(timestamp_us)
FROM maps
WHERE session_id = ?`
)
