package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/reddit-clone/votes/internal/models"
	"github.com/emilythestrangee/reddit-clone/votes/internal/votes"
)

// Store is the Postgres-backed vote ledger and counter store.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{
		db:     db,
		logger: votes.ResolveLogger(logger),
	}
}

// ApplyVote runs the toggle for one (voter, entity) pair in a single
// transaction. The vote row is locked while it is compared with expected; a
// racing first vote surfaces as a unique violation and is reported as a
// conflict.
func (s *Store) ApplyVote(ctx context.Context, key votes.VoteKey, expected, requested votes.Value) (votes.CastResult, error) {
	model, err := entityModel(key.Entity.Kind)
	if err != nil {
		return votes.CastResult{}, err
	}

	var result votes.CastResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var authors []int
		if err := tx.Model(model).Where("id = ?", key.Entity.ID).Pluck("author_id", &authors).Error; err != nil {
			return err
		}
		if len(authors) == 0 {
			return votes.ErrNotFound
		}

		var existing models.Vote
		actual := votes.None
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND entity_kind = ? AND entity_id = ?", key.VoterID, string(key.Entity.Kind), key.Entity.ID).
			Take(&existing).Error
		switch {
		case err == nil:
			actual = votes.Value(existing.Value)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		transition, write, err := votes.Resolve(actual, expected, requested)
		if err != nil {
			return err
		}
		result = votes.CastResult{Key: key, Transition: transition, AuthorID: authors[0], Replayed: !write}
		if !write {
			return nil
		}
		switch transition.Outcome {
		case votes.OutcomeCreated:
			vote := models.Vote{
				UserID:     key.VoterID,
				EntityKind: string(key.Entity.Kind),
				EntityID:   key.Entity.ID,
				Value:      int(requested),
			}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
		case votes.OutcomeRetracted:
			if res := tx.Delete(&existing); res.Error != nil {
				return res.Error
			} else if res.RowsAffected != 1 {
				return votes.ErrConflict
			}
		case votes.OutcomeSwitched:
			if res := tx.Model(&existing).Update("value", int(requested)); res.Error != nil {
				return res.Error
			} else if res.RowsAffected != 1 {
				return votes.ErrConflict
			}
		}

		return nil
	})
	if err != nil {
		return votes.CastResult{}, s.translate("votes_store_apply_vote_failed", err,
			"voter_id", key.VoterID,
			"entity", key.Entity.String(),
		)
	}
	return result, nil
}

func (s *Store) VoteOf(ctx context.Context, key votes.VoteKey) (votes.Value, error) {
	var values []int
	err := s.db.WithContext(ctx).Model(&models.Vote{}).
		Where("user_id = ? AND entity_kind = ? AND entity_id = ?", key.VoterID, string(key.Entity.Kind), key.Entity.ID).
		Pluck("value", &values).Error
	if err != nil {
		return votes.None, s.translate("votes_store_vote_of_failed", err,
			"voter_id", key.VoterID,
			"entity", key.Entity.String(),
		)
	}
	if len(values) == 0 {
		return votes.None, nil
	}
	return votes.Value(values[0]), nil
}

// Recount locks the entity row, tallies its ledger rows and writes both
// counters before releasing the lock, so reconciliations of one entity
// serialize.
func (s *Store) Recount(ctx context.Context, ref votes.EntityRef) (votes.Counters, error) {
	model, err := entityModel(ref.Kind)
	if err != nil {
		return votes.Counters{}, err
	}

	var counters votes.Counters
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked []int
		if err := tx.Model(model).Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", ref.ID).
			Pluck("id", &locked).Error; err != nil {
			return err
		}
		if len(locked) == 0 {
			return votes.ErrNotFound
		}

		if err := tx.Model(&models.Vote{}).
			Select(tallyColumns).
			Where("entity_kind = ? AND entity_id = ?", string(ref.Kind), ref.ID).
			Scan(&counters).Error; err != nil {
			return err
		}

		return tx.Model(model).Where("id = ?", ref.ID).UpdateColumns(map[string]any{
			"upvotes":         counters.Upvotes,
			"downvotes":       counters.Downvotes,
			"counter_version": gorm.Expr("counter_version + 1"),
		}).Error
	})
	if err != nil {
		return votes.Counters{}, s.translate("votes_store_recount_failed", err, "entity", ref.String())
	}
	return counters, nil
}

// ApplyDelta adds the signed delta in one UPDATE statement.
func (s *Store) ApplyDelta(ctx context.Context, ref votes.EntityRef, up, down int) (votes.Counters, error) {
	model, err := entityModel(ref.Kind)
	if err != nil {
		return votes.Counters{}, err
	}

	var counters votes.Counters
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(model).Where("id = ?", ref.ID).UpdateColumns(map[string]any{
			"upvotes":         gorm.Expr("GREATEST(upvotes + ?, 0)", up),
			"downvotes":       gorm.Expr("GREATEST(downvotes + ?, 0)", down),
			"counter_version": gorm.Expr("counter_version + 1"),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return votes.ErrNotFound
		}
		return tx.Model(model).Select("upvotes", "downvotes").Where("id = ?", ref.ID).Scan(&counters).Error
	})
	if err != nil {
		return votes.Counters{}, s.translate("votes_store_apply_delta_failed", err, "entity", ref.String())
	}
	return counters, nil
}

// ListDrifted finds live entities whose counters disagree with the ledger.
// A limit <= 0 returns every drifted entity.
func (s *Store) ListDrifted(ctx context.Context, limit int) ([]votes.EntityRef, error) {
	var refs []votes.EntityRef
	for _, kind := range []votes.EntityKind{votes.KindPost, votes.KindComment} {
		// LIMIT NULL is no limit in Postgres.
		var remaining any
		if limit > 0 {
			n := limit - len(refs)
			if n <= 0 {
				break
			}
			remaining = n
		}
		var ids []int
		err := s.db.WithContext(ctx).Raw(driftQuery(entityTable(kind)), string(kind), remaining).Scan(&ids).Error
		if err != nil {
			return nil, s.translate("votes_store_list_drifted_failed", err, "kind", string(kind))
		}
		for _, id := range ids {
			refs = append(refs, votes.EntityRef{Kind: kind, ID: id})
		}
	}
	return refs, nil
}

const tallyColumns = "COALESCE(SUM(CASE WHEN value = 1 THEN 1 ELSE 0 END), 0) AS upvotes, " +
	"COALESCE(SUM(CASE WHEN value = -1 THEN 1 ELSE 0 END), 0) AS downvotes"

func driftQuery(table string) string {
	return fmt.Sprintf(`
		SELECT e.id
		FROM %[1]s AS e
		LEFT JOIN (
			SELECT entity_id, %[2]s
			FROM votes
			WHERE entity_kind = ?
			GROUP BY entity_id
		) AS t ON t.entity_id = e.id
		WHERE e.deleted_at IS NULL
		  AND (e.upvotes <> COALESCE(t.upvotes, 0) OR e.downvotes <> COALESCE(t.downvotes, 0))
		ORDER BY e.id
		LIMIT ?`, table, tallyColumns)
}

func entityModel(kind votes.EntityKind) (any, error) {
	switch kind {
	case votes.KindPost:
		return &models.Post{}, nil
	case votes.KindComment:
		return &models.Comment{}, nil
	}
	return nil, fmt.Errorf("%w: unknown entity kind %q", votes.ErrInvalidVote, kind)
}

func entityTable(kind votes.EntityKind) string {
	if kind == votes.KindComment {
		return "comments"
	}
	return "posts"
}

// translate maps driver errors onto the vote error taxonomy. Unexpected
// errors are logged and returned unchanged.
func (s *Store) translate(event string, err error, attrs ...any) error {
	switch {
	case errors.Is(err, votes.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return votes.ErrNotFound
	case errors.Is(err, votes.ErrConflict), errors.Is(err, votes.ErrInvalidVote):
		return err
	case isConflict(err):
		return fmt.Errorf("%w: %w", votes.ErrConflict, err)
	case isTransient(err):
		return votes.Transient(err)
	}

	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "votes",
		"layer", "store",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	s.logger.Error("vote store operation failed", fields...)
	return err
}

// isConflict matches Postgres errors caused by a competing writer.
func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "23505", // unique_violation
		"40001", // serialization_failure
		"40P01", // deadlock_detected
		"55P03": // lock_not_available
		return true
	}
	return false
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || pgconn.Timeout(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case len(pgErr.Code) == 5 && pgErr.Code[:2] == "08": // connection_exception
			return true
		case pgErr.Code == "57P01", pgErr.Code == "53300": // admin_shutdown, too_many_connections
			return true
		}
		return false
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

var (
	_ votes.LedgerStore  = (*Store)(nil)
	_ votes.CounterStore = (*Store)(nil)
)

// ListPosts returns up to limit live posts, newest first.
func (s *Store) ListPosts(ctx context.Context, limit int) ([]models.Post, error) {
	var posts []models.Post
	if err := s.db.WithContext(ctx).
		Preload("User").
		Order("created_at desc").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, s.translate("votes_store_list_posts_failed", err, "limit", limit)
	}
	return posts, nil
}

func (s *Store) GetPost(ctx context.Context, id int) (models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Preload("User").First(&post, id).Error; err != nil {
		return models.Post{}, s.translate("votes_store_get_post_failed", err, "post_id", id)
	}
	return post, nil
}

// ListComments returns the live comments of a post, newest first.
func (s *Store) ListComments(ctx context.Context, postID int) ([]models.Comment, error) {
	var comments []models.Comment
	if err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Preload("User").
		Order("created_at desc").
		Find(&comments).Error; err != nil {
		return nil, s.translate("votes_store_list_comments_failed", err, "post_id", postID)
	}
	return comments, nil
}
