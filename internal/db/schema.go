package db

// schemaTemplate is the schema initialization SQL. The single %d placeholder
// is the embedding dimension for the chunk HNSW index.
const schemaTemplate = `
    -- ==========================================================================
    -- CONTENT TABLE (one row per immutable revision)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS content SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS content_id ON content TYPE string;
    DEFINE FIELD IF NOT EXISTS revision_id ON content TYPE string;
    DEFINE FIELD IF NOT EXISTS source ON content TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS text ON content TYPE string;
    DEFINE FIELD IF NOT EXISTS created_at ON content TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS content_rev ON content FIELDS content_id, revision_id UNIQUE;

    -- ==========================================================================
    -- CHUNK TABLE (fixed-size overlapping windows of a revision)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS chunk SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS content_id ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS revision_id ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS rev_key ON chunk VALUE string::concat(content_id, "@", revision_id);
    DEFINE FIELD IF NOT EXISTS seq ON chunk TYPE int;
    DEFINE FIELD IF NOT EXISTS text ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS start_char ON chunk TYPE int;
    DEFINE FIELD IF NOT EXISTS end_char ON chunk TYPE int;
    DEFINE FIELD IF NOT EXISTS embedding ON chunk TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS created_at ON chunk TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS chunk_rev ON chunk FIELDS rev_key;
    DEFINE INDEX IF NOT EXISTS chunk_embedding ON chunk FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
    DEFINE ANALYZER IF NOT EXISTS chunk_analyzer TOKENIZERS class FILTERS lowercase, ascii, snowball(english);
    DEFINE INDEX IF NOT EXISTS chunk_text_ft ON chunk FIELDS text FULLTEXT ANALYZER chunk_analyzer BM25;

    -- ==========================================================================
    -- EXTRACTION JOB TABLE (durable queue, one row per (content, revision))
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS extraction_job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS content_id ON extraction_job TYPE string;
    DEFINE FIELD IF NOT EXISTS revision_id ON extraction_job TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON extraction_job TYPE string
        ASSERT $value IN ["pending", "processing", "done", "failed"];
    DEFINE FIELD IF NOT EXISTS attempts ON extraction_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS last_error ON extraction_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS worker ON extraction_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS not_before ON extraction_job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS created_at ON extraction_job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS claimed_at ON extraction_job TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS job_rev ON extraction_job FIELDS content_id, revision_id UNIQUE;
    DEFINE INDEX IF NOT EXISTS job_status ON extraction_job FIELDS status;

    -- ==========================================================================
    -- EVENT TABLE (semantic events, worker-owned, replaced as a unit)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS event SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS content_id ON event TYPE string;
    DEFINE FIELD IF NOT EXISTS revision_id ON event TYPE string;
    DEFINE FIELD IF NOT EXISTS rev_key ON event VALUE string::concat(content_id, "@", revision_id);
    DEFINE FIELD IF NOT EXISTS category ON event TYPE string;
    DEFINE FIELD IF NOT EXISTS narrative ON event TYPE string;
    DEFINE FIELD IF NOT EXISTS confidence ON event TYPE float;
    DEFINE FIELD IF NOT EXISTS event_time ON event TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS created_at ON event TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS event_rev ON event FIELDS rev_key;
    DEFINE INDEX IF NOT EXISTS event_category ON event FIELDS category;

    -- ==========================================================================
    -- EVIDENCE TABLE (verifiable source spans per event)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS evidence SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS event ON evidence TYPE record<event>;
    DEFINE FIELD IF NOT EXISTS chunk_id ON evidence TYPE string;
    DEFINE FIELD IF NOT EXISTS quote ON evidence TYPE string;
    DEFINE FIELD IF NOT EXISTS start_char ON evidence TYPE int;
    DEFINE FIELD IF NOT EXISTS end_char ON evidence TYPE int;

    DEFINE INDEX IF NOT EXISTS evidence_event ON evidence FIELDS event;

    -- ==========================================================================
    -- ENTITY REGISTRY (canonical referents, lazily created, never auto-merged)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS entity SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON entity TYPE string;
    DEFINE FIELD IF NOT EXISTS norm_name ON entity TYPE string;
    DEFINE FIELD IF NOT EXISTS type ON entity TYPE string
        ASSERT $value IN ["person", "team", "organization"];
    DEFINE FIELD IF NOT EXISTS needs_review ON entity TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS created_at ON entity TYPE datetime DEFAULT time::now();

    -- Uniqueness on the normalized name is the race arbiter for concurrent
    -- resolution of the same surface form by two workers.
    DEFINE INDEX IF NOT EXISTS entity_norm ON entity FIELDS norm_name UNIQUE;
    DEFINE INDEX IF NOT EXISTS entity_review ON entity FIELDS needs_review;
    DEFINE ANALYZER IF NOT EXISTS entity_analyzer TOKENIZERS class FILTERS lowercase, ascii;
    DEFINE INDEX IF NOT EXISTS entity_name_ft ON entity FIELDS name FULLTEXT ANALYZER entity_analyzer BM25;

    -- ==========================================================================
    -- ALIAS TABLE (known surface forms of an entity)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS alias SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS entity ON alias TYPE record<entity>;
    DEFINE FIELD IF NOT EXISTS surface ON alias TYPE string;
    DEFINE FIELD IF NOT EXISTS norm_surface ON alias TYPE string;

    DEFINE INDEX IF NOT EXISTS alias_unique ON alias FIELDS entity, norm_surface UNIQUE;
    DEFINE INDEX IF NOT EXISTS alias_norm ON alias FIELDS norm_surface;

    -- ==========================================================================
    -- MENTION TABLE (one surface-form occurrence in one event)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS mention SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS entity ON mention TYPE record<entity>;
    DEFINE FIELD IF NOT EXISTS event ON mention TYPE record<event>;
    DEFINE FIELD IF NOT EXISTS surface ON mention TYPE string;
    DEFINE FIELD IF NOT EXISTS role ON mention TYPE string
        ASSERT $value IN ["actor", "subject"];

    DEFINE INDEX IF NOT EXISTS mention_event ON mention FIELDS event;
    DEFINE INDEX IF NOT EXISTS mention_entity ON mention FIELDS entity;

    -- ==========================================================================
    -- INVOLVES RELATION (event -> entity edges the expansion traverses)
    -- ==========================================================================
    -- Single relation table with a role field instead of separate actor and
    -- subject tables; the unique key deduplicates edges per role.
    DEFINE TABLE IF NOT EXISTS involves TYPE RELATION IN event OUT entity SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS role ON involves TYPE string
        ASSERT $value IN ["actor", "subject"];
    DEFINE FIELD IF NOT EXISTS created ON involves TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS unique_key ON involves VALUE string::concat(<string>in, "|", <string>out, "|", role);
    DEFINE INDEX IF NOT EXISTS unique_involves ON involves FIELDS unique_key UNIQUE;
    DEFINE INDEX IF NOT EXISTS involves_entity ON involves FIELDS out;
`
