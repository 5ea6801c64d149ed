package storage

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL,
		headline TEXT NOT NULL,
		body TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		published_at DATETIME NULL,
		ingested_at DATETIME NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		keywords TEXT NOT NULL DEFAULT '[]',
		image_url TEXT NOT NULL DEFAULT '',
		local_image_ref TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_status ON articles(status)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_ingested ON articles(ingested_at)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		caption TEXT NOT NULL DEFAULT '',
		hashtags TEXT NOT NULL DEFAULT '[]',
		image_ref TEXT NOT NULL DEFAULT '',
		template TEXT NOT NULL DEFAULT '',
		scheduled_at DATETIME NULL,
		published_at DATETIME NULL,
		external_id TEXT NOT NULL DEFAULT '',
		external_url TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		engagement TEXT NOT NULL DEFAULT '{}',
		error TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_status ON posts(status)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_article ON posts(article_id)`,
	`CREATE TABLE IF NOT EXISTS processing_jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		retry_count INTEGER NOT NULL DEFAULT 0,
		max_retries INTEGER NOT NULL DEFAULT 3,
		error TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		started_at DATETIME NULL,
		completed_at DATETIME NULL,
		UNIQUE (article_id, kind)
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id BIGSERIAL PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL,
		headline TEXT NOT NULL,
		body TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		published_at TIMESTAMPTZ NULL,
		ingested_at TIMESTAMPTZ NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		keywords TEXT NOT NULL DEFAULT '[]',
		image_url TEXT NOT NULL DEFAULT '',
		local_image_ref TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_status ON articles(status)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_ingested ON articles(ingested_at)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id BIGSERIAL PRIMARY KEY,
		article_id BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		caption TEXT NOT NULL DEFAULT '',
		hashtags TEXT NOT NULL DEFAULT '[]',
		image_ref TEXT NOT NULL DEFAULT '',
		template TEXT NOT NULL DEFAULT '',
		scheduled_at TIMESTAMPTZ NULL,
		published_at TIMESTAMPTZ NULL,
		external_id TEXT NOT NULL DEFAULT '',
		external_url TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		engagement TEXT NOT NULL DEFAULT '{}',
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_status ON posts(status)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_article ON posts(article_id)`,
	`CREATE TABLE IF NOT EXISTS processing_jobs (
		id BIGSERIAL PRIMARY KEY,
		article_id BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		retry_count INTEGER NOT NULL DEFAULT 0,
		max_retries INTEGER NOT NULL DEFAULT 3,
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		started_at TIMESTAMPTZ NULL,
		completed_at TIMESTAMPTZ NULL,
		UNIQUE (article_id, kind)
	)`,
}
