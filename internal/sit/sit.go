// Package sit implements the SIT repository (component J): creation,
// listing, and the dense version numbering scheme in §4.J-K, eagerly
// assembling the value tree described in design note "ORM object graph
// with lazy relations for SIT versions" → one query per version set.
package sit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/sitforge/dlpsit/internal/model"
	"github.com/sitforge/dlpsit/internal/store"
)

type Repository struct {
	db *store.DB
}

func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

// CreateSIT inserts a new SIT with no versions.
func (r *Repository) CreateSIT(ctx context.Context, name, description string) (model.SIT, error) {
	r.db.Lock()
	defer r.db.Unlock()

	id := uuid.NewString()
	_, err := r.db.Conn().ExecContext(ctx,
		`INSERT INTO sits (id, name, description) VALUES (?, ?, ?)`, id, name, nullIfEmpty(description))
	if err != nil {
		return model.SIT{}, err
	}
	return r.getSIT(ctx, id)
}

// CreateVersion adds a new version to sitID, assigning
// next_version_number(sit_id) = max(existing) + 1 inside a transaction so
// concurrent creates yield distinct, dense numbers.
func (r *Repository) CreateVersion(ctx context.Context, sitID string, v model.SITVersion) (model.SITVersion, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return model.SITVersion{}, err
	}
	defer tx.Rollback()

	var maxVersion sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(version_number) FROM sit_versions WHERE sit_id = ?`, sitID).Scan(&maxVersion); err != nil {
		return model.SITVersion{}, err
	}
	versionNumber := int(maxVersion.Int64) + 1

	id := uuid.NewString()
	v.ID = id
	v.SITID = sitID
	v.VersionNumber = versionNumber

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sit_versions (id, sit_id, version_number, entity_type, confidence, source, primary_element_type, primary_element_value, logic_mode, logic_min_n, logic_max_n)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, sitID, versionNumber, nullIfEmpty(v.EntityType), nullIfEmpty(v.Confidence), nullIfEmpty(v.Source),
		string(v.PrimaryElement.Type), v.PrimaryElement.Value, string(v.SupportingLogic.Mode), v.SupportingLogic.MinN, v.SupportingLogic.MaxN)
	if err != nil {
		return model.SITVersion{}, err
	}

	for _, g := range v.SupportingGroups {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO supporting_groups (sit_version_id, name, position) VALUES (?, ?, ?)`, id, g.Name, g.Position)
		if err != nil {
			return model.SITVersion{}, err
		}
		groupID, err := res.LastInsertId()
		if err != nil {
			return model.SITVersion{}, err
		}
		for _, item := range g.Items {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO supporting_items (group_id, item_type, value, keyword_list_id, position) VALUES (?, ?, ?, ?, ?)`,
				groupID, string(item.Type), nullIfEmpty(item.Value), nullIfEmpty(item.KeywordListID), item.Position)
			if err != nil {
				return model.SITVersion{}, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return model.SITVersion{}, err
	}
	return r.getVersion(ctx, id)
}

// GetVersion loads one version's full value tree.
func (r *Repository) GetVersion(ctx context.Context, versionID string) (model.SITVersion, error) {
	r.db.Lock()
	defer r.db.Unlock()
	return r.getVersion(ctx, versionID)
}

// getVersion is GetVersion without acquiring the lock, for callers (like
// CreateVersion) that already hold it.
func (r *Repository) getVersion(ctx context.Context, versionID string) (model.SITVersion, error) {
	versions, err := r.loadVersions(ctx, `sv.id = ?`, versionID)
	if err != nil {
		return model.SITVersion{}, err
	}
	if len(versions) == 0 {
		return model.SITVersion{}, sql.ErrNoRows
	}
	return versions[0], nil
}

// GetVersionsByIDs loads the full value tree for a set of version ids, in
// no particular order (callers that need the exporter's ordering re-sort).
func (r *Repository) GetVersionsByIDs(ctx context.Context, ids []string) ([]model.SITVersion, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	r.db.Lock()
	defer r.db.Unlock()

	placeholders := make([]interface{}, len(ids))
	q := "sv.id IN ("
	for i, id := range ids {
		if i > 0 {
			q += ", "
		}
		q += "?"
		placeholders[i] = id
	}
	q += ")"
	return r.loadVersions(ctx, q, placeholders...)
}

// getSIT loads a SIT with no versions populated (list/lookup use only).
func (r *Repository) getSIT(ctx context.Context, id string) (model.SIT, error) {
	var s model.SIT
	var desc sql.NullString
	err := r.db.Conn().QueryRowContext(ctx, `SELECT id, name, description, created_at FROM sits WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &desc, &s.CreatedAt)
	if err != nil {
		return model.SIT{}, err
	}
	s.Description = desc.String
	return s, nil
}

// ListSITs returns every SIT with its versions eagerly loaded.
func (r *Repository) ListSITs(ctx context.Context) ([]model.SIT, error) {
	r.db.Lock()
	defer r.db.Unlock()

	rows, err := r.db.Conn().QueryContext(ctx, `SELECT id, name, description, created_at FROM sits ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sits []model.SIT
	for rows.Next() {
		var s model.SIT
		var desc sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &desc, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Description = desc.String
		sits = append(sits, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sits {
		versions, err := r.loadVersions(ctx, `sv.sit_id = ?`, sits[i].ID)
		if err != nil {
			return nil, err
		}
		sits[i].Versions = versions
	}
	return sits, nil
}

// loadVersions runs one query for sit_versions matching whereClause/args,
// then one query each for supporting_groups and supporting_items keyed by
// the resulting version ids — the "one query per version set" shape from
// the design notes. Caller must hold r.db's lock.
func (r *Repository) loadVersions(ctx context.Context, whereClause string, args ...interface{}) ([]model.SITVersion, error) {
	query := fmt.Sprintf(
		`SELECT sv.id, sv.sit_id, s.name, sv.version_number, sv.entity_type, sv.confidence, sv.source,
		        sv.primary_element_type, sv.primary_element_value, sv.logic_mode, sv.logic_min_n, sv.logic_max_n, sv.created_at
		 FROM sit_versions sv JOIN sits s ON s.id = sv.sit_id
		 WHERE %s ORDER BY s.name, sv.version_number, sv.id`, whereClause)

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []model.SITVersion
	byID := map[string]*model.SITVersion{}
	var order []string
	for rows.Next() {
		var v model.SITVersion
		var entityType, confidence, source sql.NullString
		var minN, maxN sql.NullInt64
		if err := rows.Scan(&v.ID, &v.SITID, &v.SITName, &v.VersionNumber, &entityType, &confidence, &source,
			&v.PrimaryElement.Type, &v.PrimaryElement.Value, &v.SupportingLogic.Mode, &minN, &maxN, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.EntityType = entityType.String
		v.Confidence = confidence.String
		v.Source = source.String
		if minN.Valid {
			n := int(minN.Int64)
			v.SupportingLogic.MinN = &n
		}
		if maxN.Valid {
			n := int(maxN.Int64)
			v.SupportingLogic.MaxN = &n
		}
		versions = append(versions, v)
		order = append(order, v.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range versions {
		byID[versions[i].ID] = &versions[i]
	}
	if len(versions) == 0 {
		return nil, nil
	}

	groupsByVersion, groupNameByID, groupOrder, err := r.loadGroups(ctx, order)
	if err != nil {
		return nil, err
	}
	itemsByGroup, err := r.loadItems(ctx, groupOrder)
	if err != nil {
		return nil, err
	}

	for versionID, groupIDs := range groupsByVersion {
		v := byID[versionID]
		for _, gid := range groupIDs {
			v.SupportingGroups = append(v.SupportingGroups, model.SupportingGroup{
				Name:     groupNameByID[gid].name,
				Position: groupNameByID[gid].position,
				Items:    itemsByGroup[gid],
			})
		}
	}

	return versions, nil
}

type groupMeta struct {
	name     string
	position int
}

func (r *Repository) loadGroups(ctx context.Context, versionIDs []string) (map[string][]int64, map[int64]groupMeta, []int64, error) {
	if len(versionIDs) == 0 {
		return nil, nil, nil, nil
	}
	args := make([]interface{}, len(versionIDs))
	q := "sit_version_id IN ("
	for i, id := range versionIDs {
		if i > 0 {
			q += ", "
		}
		q += "?"
		args[i] = id
	}
	q += ") ORDER BY sit_version_id, position"

	rows, err := r.db.Conn().QueryContext(ctx,
		"SELECT id, sit_version_id, name, position FROM supporting_groups WHERE "+q, args...)
	if err != nil {
		return nil, nil, nil, err
	}
	defer rows.Close()

	byVersion := map[string][]int64{}
	meta := map[int64]groupMeta{}
	var groupOrder []int64
	for rows.Next() {
		var id int64
		var versionID, name string
		var position int
		if err := rows.Scan(&id, &versionID, &name, &position); err != nil {
			return nil, nil, nil, err
		}
		byVersion[versionID] = append(byVersion[versionID], id)
		meta[id] = groupMeta{name: name, position: position}
		groupOrder = append(groupOrder, id)
	}
	return byVersion, meta, groupOrder, rows.Err()
}

func (r *Repository) loadItems(ctx context.Context, groupIDs []int64) (map[int64][]model.SupportingItem, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	args := make([]interface{}, len(groupIDs))
	q := "group_id IN ("
	for i, id := range groupIDs {
		if i > 0 {
			q += ", "
		}
		q += "?"
		args[i] = id
	}
	q += ") ORDER BY group_id, position"

	rows, err := r.db.Conn().QueryContext(ctx,
		"SELECT group_id, item_type, value, keyword_list_id, position FROM supporting_items WHERE "+q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64][]model.SupportingItem{}
	for rows.Next() {
		var groupID int64
		var itemType string
		var value, listID sql.NullString
		var position int
		if err := rows.Scan(&groupID, &itemType, &value, &listID, &position); err != nil {
			return nil, err
		}
		out[groupID] = append(out[groupID], model.SupportingItem{
			Type: model.SupportingItemType(itemType), Value: value.String, KeywordListID: listID.String, Position: position,
		})
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
