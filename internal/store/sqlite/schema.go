package sqlite

const currentSchemaVersion = 1

// Schema v1 - albums, favorites, sync state
const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS albums (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  primary_artist TEXT NOT NULL,
  year TEXT NOT NULL,
  genre TEXT NOT NULL,
  cover_url TEXT NOT NULL DEFAULT '',
  track_count INTEGER NOT NULL DEFAULT 0,
  release_date TEXT NOT NULL DEFAULT '',
  external_id TEXT NOT NULL DEFAULT '',
  album_type TEXT NOT NULL DEFAULT '',
  cached_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_albums_cached_at ON albums(cached_at);
CREATE INDEX IF NOT EXISTS idx_albums_genre ON albums(genre);
CREATE INDEX IF NOT EXISTS idx_albums_year ON albums(year);

-- One row per (album, user); removed with the album
CREATE TABLE IF NOT EXISTS favorites (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  album_id TEXT NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  comment TEXT NOT NULL DEFAULT '',
  rating REAL,
  added_at INTEGER NOT NULL,
  UNIQUE(album_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_favorites_user ON favorites(user_id, added_at);

CREATE TABLE IF NOT EXISTS sync_state (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  last_sync_at INTEGER NOT NULL
);
`
