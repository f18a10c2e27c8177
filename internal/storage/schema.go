package storage

const schema = `
-- 'note' holds uploaded source documents. name is the dedup key.
CREATE TABLE IF NOT EXISTS note (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    content TEXT,
    content_hash TEXT,
    created_at INTEGER DEFAULT (unixepoch()),
    updated_at INTEGER DEFAULT (unixepoch())
);

-- 'card' holds generated quiz items. options is JSON: a list of
-- {option,value} objects or a plain string.
CREATE TABLE IF NOT EXISTS card (
    id TEXT PRIMARY KEY,
    note_id TEXT NOT NULL REFERENCES note(id) ON DELETE CASCADE,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    type TEXT NOT NULL,
    options TEXT,
    created_at INTEGER DEFAULT (unixepoch()),
    updated_at INTEGER DEFAULT (unixepoch())
);

-- 'review' is the schedule of a card.
CREATE TABLE IF NOT EXISTS review (
    id TEXT PRIMARY KEY,
    card_id TEXT NOT NULL REFERENCES card(id) ON DELETE CASCADE,
    last_review INTEGER,
    next_review INTEGER NOT NULL DEFAULT (unixepoch())
);

-- 'score' is the append-only answer history of a card. It does not cascade,
-- so card deletion has to remove scores first.
CREATE TABLE IF NOT EXISTS score (
    id TEXT PRIMARY KEY,
    card_id TEXT NOT NULL REFERENCES card(id),
    score INTEGER NOT NULL,
    difficulty INTEGER NOT NULL,
    created_at INTEGER DEFAULT (unixepoch()),
    updated_at INTEGER DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_card_note_id ON card(note_id);
CREATE INDEX IF NOT EXISTS idx_review_card_id ON review(card_id);
CREATE INDEX IF NOT EXISTS idx_review_next_review ON review(next_review);
CREATE INDEX IF NOT EXISTS idx_score_card_id ON score(card_id);
`
