package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
	"github.com/yungbote/neurobridge-threads/internal/platform/neo4jdb"
)

var schemaStatements = []string{
	`CREATE CONSTRAINT course_id_unique IF NOT EXISTS FOR (c:Course) REQUIRE c.id IS UNIQUE`,
	`CREATE CONSTRAINT thread_id_unique IF NOT EXISTS FOR (t:Thread) REQUIRE t.id IS UNIQUE`,
	`CREATE CONSTRAINT lecture_id_unique IF NOT EXISTS FOR (l:Lecture) REQUIRE l.id IS UNIQUE`,
}

// UpsertCourseThreads projects threads and their occurrences as
// (Course)-[:HAS_THREAD]->(Thread)-[:APPEARS_IN]->(Lecture). The relational store stays
// the source of truth; the projection is rebuilt idempotently by MERGE.
func UpsertCourseThreads(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, courseID uuid.UUID, rows []*threads.Thread, occs []*threads.ThreadOccurrence) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if courseID == uuid.Nil || (len(rows) == 0 && len(occs) == 0) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	threadRows := ThreadRows(courseID, rows, now)
	appearRows := AppearanceRows(courseID, occs, now)

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	for _, stmt := range schemaStatements {
		if res, err := session.Run(ctx, stmt, nil); err != nil {
			if log != nil {
				log.Warn("neo4j schema init failed (continuing)", "error", err)
			}
		} else {
			_, _ = res.Consume(ctx)
		}
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(threadRows) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $rows AS r
MERGE (c:Course {id: r.course_id})
SET c.synced_at = r.synced_at
MERGE (t:Thread {id: r.id})
SET t.title = r.title,
    t.summary = r.summary,
    t.status = r.status,
    t.face = r.face,
    t.complexity_level = r.complexity_level,
    t.occurrence_count = r.occurrence_count,
    t.contradiction_count = r.contradiction_count,
    t.version = r.version,
    t.synced_at = r.synced_at
MERGE (c)-[:HAS_THREAD]->(t)
`, map[string]any{"rows": threadRows})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		if len(appearRows) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $rows AS r
MERGE (t:Thread {id: r.thread_id})
MERGE (l:Lecture {id: r.lecture_id})
SET l.course_id = r.course_id
MERGE (t)-[a:APPEARS_IN {artifact_id: r.artifact_id}]->(l)
SET a.confidence = r.confidence,
    a.facet = r.facet,
    a.created = r.created,
    a.synced_at = r.synced_at
`, map[string]any{"rows": appearRows})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// ThreadRows builds the UNWIND parameters for thread nodes of one course.
func ThreadRows(courseID uuid.UUID, rows []*threads.Thread, syncedAt string) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, t := range rows {
		if t == nil || t.ID == uuid.Nil || t.CourseID != courseID {
			continue
		}
		out = append(out, map[string]any{
			"course_id":           courseID.String(),
			"id":                  t.ID.String(),
			"title":               t.Title,
			"summary":             t.Summary,
			"status":              string(t.Status),
			"face":                string(t.Face),
			"complexity_level":    int64(t.ComplexityLevel),
			"occurrence_count":    int64(t.OccurrenceCount),
			"contradiction_count": int64(t.ContradictionCount),
			"version":             int64(t.Version),
			"synced_at":           syncedAt,
		})
	}
	return out
}

// AppearanceRows builds the UNWIND parameters for thread-to-lecture edges.
func AppearanceRows(courseID uuid.UUID, occs []*threads.ThreadOccurrence, syncedAt string) []map[string]any {
	out := make([]map[string]any, 0, len(occs))
	for _, o := range occs {
		if o == nil || o.ThreadID == uuid.Nil || o.LectureID == uuid.Nil || o.CourseID != courseID {
			continue
		}
		out = append(out, map[string]any{
			"course_id":   courseID.String(),
			"thread_id":   o.ThreadID.String(),
			"lecture_id":  o.LectureID.String(),
			"artifact_id": o.ArtifactID,
			"confidence":  o.Confidence,
			"facet":       string(o.Facet),
			"created":     o.Created,
			"synced_at":   syncedAt,
		})
	}
	return out
}
