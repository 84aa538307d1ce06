// Command migrate applies the shared-store schema: the five tables
// the protocol uses plus the row triggers that feed the NOTIFY
// channels every agent listens on.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/pcanellas/jornada-sync/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS tournaments (
	id uuid PRIMARY KEY,
	host_name text NOT NULL,
	status text NOT NULL DEFAULT 'active',
	created_at timestamptz NOT NULL DEFAULT now()
);

-- Singleton pointer. The value column is nullable on purpose:
-- a cleared pointer and a missing row are different facts.
CREATE TABLE IF NOT EXISTS jornada_pointer (
	key text PRIMARY KEY,
	tournament_id uuid,
	updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pairs (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	tournament_id uuid NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
	pair_number integer NOT NULL CHECK (pair_number >= 1),
	player1_name text NOT NULL,
	player2_name text NOT NULL,
	UNIQUE (tournament_id, pair_number)
);

CREATE TABLE IF NOT EXISTS matches (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	tournament_id uuid NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
	pair_a_id uuid NOT NULL REFERENCES pairs(id) ON DELETE CASCADE,
	pair_b_id uuid NOT NULL REFERENCES pairs(id) ON DELETE CASCADE,
	score_a integer NOT NULL,
	score_b integer NOT NULL,
	hands_a integer NOT NULL DEFAULT 0,
	hands_b integer NOT NULL DEFAULT 0,
	termination_type text NOT NULL DEFAULT 'normal',
	pair_a_names text[] NOT NULL DEFAULT '{}',
	pair_b_names text[] NOT NULL DEFAULT '{}',
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS matches_tournament_idx
	ON matches (tournament_id, created_at);

-- Canonical key enforced in the schema, not just by client
-- discipline: pair_a must be the smaller pair number.
CREATE TABLE IF NOT EXISTS live_matches (
	tournament_id uuid NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
	pair_a integer NOT NULL,
	pair_b integer NOT NULL,
	score_a integer NOT NULL DEFAULT 0,
	score_b integer NOT NULL DEFAULT 0,
	hand_number integer NOT NULL DEFAULT 0,
	updated_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (tournament_id, pair_a, pair_b),
	CHECK (pair_a < pair_b)
);

-- NOTIFY payloads are capped at 8000 bytes; an oversized row falls
-- back to an op-only payload and the agents' polling picks up the
-- actual data.
CREATE OR REPLACE FUNCTION notify_jornada_change() RETURNS trigger AS $$
DECLARE
	channel text := TG_ARGV[0];
	payload text;
BEGIN
	IF TG_OP = 'DELETE' THEN
		payload := json_build_object('op', TG_OP, 'old', row_to_json(OLD))::text;
	ELSE
		payload := json_build_object('op', TG_OP, 'row', row_to_json(NEW))::text;
	END IF;
	IF octet_length(payload) >= 8000 THEN
		payload := json_build_object('op', TG_OP)::text;
	END IF;
	PERFORM pg_notify(channel, payload);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS jornada_pointer_notify ON jornada_pointer;
CREATE TRIGGER jornada_pointer_notify
	AFTER INSERT OR UPDATE OR DELETE ON jornada_pointer
	FOR EACH ROW EXECUTE FUNCTION notify_jornada_change('jornada_pointer');

DROP TRIGGER IF EXISTS matches_notify ON matches;
CREATE TRIGGER matches_notify
	AFTER INSERT OR UPDATE OR DELETE ON matches
	FOR EACH ROW EXECUTE FUNCTION notify_jornada_change('jornada_matches');

DROP TRIGGER IF EXISTS live_matches_notify ON live_matches;
CREATE TRIGGER live_matches_notify
	AFTER INSERT OR UPDATE OR DELETE ON live_matches
	FOR EACH ROW EXECUTE FUNCTION notify_jornada_change('jornada_live');
`

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	conn, err := db.Connect(dsn, 10*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	fmt.Println("Applying jornada schema and notify triggers...")
	if _, err := conn.Exec(schema); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	fmt.Println("Done.")
}
