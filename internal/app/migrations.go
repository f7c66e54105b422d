package app

import "github.com/koeurnDev/EZA-POST-sub000/internal/db/postgres"

// SQL-миграции встроены в код для упрощения деплоя.
var migrations = []postgres.Migration{
	{Version: 1, Name: "credits", SQL: migration001Credits},
	{Version: 2, Name: "boost_accounts", SQL: migration002Accounts},
	{Version: 3, Name: "posts", SQL: migration003Posts},
	{Version: 4, Name: "boost", SQL: migration004Boost},
}

var migration001Credits = `
CREATE TABLE IF NOT EXISTS credit_balances (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT UNIQUE NOT NULL,
    balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    total_spent BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS credit_transactions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    type VARCHAR(16) NOT NULL,
    amount BIGINT NOT NULL,
    balance BIGINT NOT NULL,
    description TEXT,
    related_id VARCHAR(64),
    created_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_credit_transactions_user ON credit_transactions(user_id, id DESC);
`

var migration002Accounts = `
CREATE TABLE IF NOT EXISTS boost_accounts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    platform VARCHAR(16) NOT NULL DEFAULT 'tiktok',
    username VARCHAR(255) NOT NULL,
    encrypted_password TEXT NOT NULL DEFAULT '',
    session BYTEA,
    cookies_updated TIMESTAMPTZ,
    status VARCHAR(16) NOT NULL DEFAULT 'active',
    daily_limit INTEGER NOT NULL DEFAULT 25,
    actions_today INTEGER NOT NULL DEFAULT 0,
    last_reset_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    cooldown_until TIMESTAMPTZ,
    last_used TIMESTAMPTZ,
    total_actions BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, platform, username)
);
CREATE INDEX IF NOT EXISTS idx_boost_accounts_pool ON boost_accounts(user_id, platform, status);
`

var migration003Posts = `
CREATE TABLE IF NOT EXISTS posts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    platform VARCHAR(16) NOT NULL DEFAULT 'tiktok',
    url TEXT NOT NULL DEFAULT '',
    status VARCHAR(16) NOT NULL DEFAULT 'draft',
    likes BIGINT NOT NULL DEFAULT 0,
    comments BIGINT NOT NULL DEFAULT 0,
    shares BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_posts_user_status ON posts(user_id, status, created_at);
`

var migration004Boost = `
CREATE TABLE IF NOT EXISTS boost_rules (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT UNIQUE NOT NULL,
    enabled BOOLEAN NOT NULL DEFAULT FALSE,
    rules JSONB NOT NULL DEFAULT '[]',
    real_boost JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS boosted_posts (
    id BIGSERIAL PRIMARY KEY,
    post_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    platform VARCHAR(16) NOT NULL DEFAULT '',
    post_url TEXT NOT NULL DEFAULT '',
    status VARCHAR(16) NOT NULL DEFAULT 'active',
    error TEXT NOT NULL DEFAULT '',
    rule_triggered TEXT NOT NULL DEFAULT '',
    actions JSONB NOT NULL DEFAULT '[]',
    targets JSONB NOT NULL DEFAULT '{}',
    likes_added BIGINT NOT NULL DEFAULT 0,
    comments_added BIGINT NOT NULL DEFAULT 0,
    shares_added BIGINT NOT NULL DEFAULT 0,
    real_boost_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    accounts_used BIGINT[] NOT NULL DEFAULT '{}',
    actions_completed JSONB NOT NULL DEFAULT '[]',
    credits_spent BIGINT NOT NULL DEFAULT 0,
    boost_started TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    boost_ended TIMESTAMPTZ
);
-- Не больше одного active/completed буста на пост
CREATE UNIQUE INDEX IF NOT EXISTS uq_boosted_posts_live
    ON boosted_posts(post_id, user_id) WHERE status IN ('active', 'completed');
CREATE INDEX IF NOT EXISTS idx_boosted_posts_user ON boosted_posts(user_id, boost_started DESC);
`
