package vault

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/strongroom/strongroom/pkg/field"
)

// Category groups records by shape. Unknown values are preserved as custom
// categories.
type Category string

const (
	CategoryLogin    Category = "Login"
	CategoryBankCard Category = "BankCard"
	CategoryNote     Category = "Note"
	CategoryOther    Category = "Other"
)

// Record is a titled vault entry grouping ordered contents.
type Record struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Subtitle     string    `json:"subtitle"`
	Category     Category  `json:"category"`
	Created      time.Time `json:"created"`
	LastModified time.Time `json:"last_modified"`
}

// Content is one typed field of a record. Value holds the plaintext only
// for non-sensitive kinds; listings leave it empty for sensitive kinds and
// callers fetch those on demand with ContentValue.
type Content struct {
	ID       int64      `json:"id"`
	RecordID int64      `json:"record_id"`
	Label    string     `json:"label"`
	Position int        `json:"position"`
	Required bool       `json:"required"`
	Kind     field.Kind `json:"kind"`
	Value    string     `json:"value"`
}

// DefaultContent returns the unsaved content template for a category. Date
// fields default to today.
func DefaultContent(category Category) []Content {
	today := time.Now().Format(field.DateLayout)

	switch category {
	case CategoryLogin:
		return []Content{
			{Label: "Website", Position: 0, Required: true, Kind: field.URL},
			{Label: "User", Position: 1, Required: true, Kind: field.Text},
			{Label: "Password", Position: 2, Required: true, Kind: field.Password},
		}
	case CategoryBankCard:
		return []Content{
			{Label: "Card number", Position: 0, Required: true, Kind: field.BankCardNumber},
			{Label: "CVV", Position: 1, Required: true, Kind: field.Number},
			{Label: "Expiration date", Position: 2, Required: true, Kind: field.Date, Value: today},
			{Label: "PIN", Position: 3, Required: true, Kind: field.Number},
		}
	case CategoryNote:
		return []Content{
			{Label: "Note", Position: 0, Required: true, Kind: field.LongText},
		}
	default:
		return []Content{}
	}
}

// Records returns all records, most recently modified first. Contents are
// not loaded.
func (v *Vault) Records() ([]Record, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.dek == nil {
		return nil, ErrVaultLocked
	}

	rows, err := v.db.Query(
		"SELECT id, title, subtitle, category, created, last_modified FROM records ORDER BY last_modified DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("vault: failed to query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := v.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vault: failed to iterate records: %w", err)
	}
	return records, nil
}

// Record returns a single record by id.
func (v *Vault) Record(id int64) (Record, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.dek == nil {
		return Record{}, ErrVaultLocked
	}

	row := v.db.QueryRow(
		"SELECT id, title, subtitle, category, created, last_modified FROM records WHERE id = ?", id)

	var (
		r                     Record
		titleBlob, subBlob    []byte
		created, lastModified int64
	)
	err := row.Scan(&r.ID, &titleBlob, &subBlob, &r.Category, &created, &lastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("vault: failed to load record: %w", err)
	}

	if r.Title, err = openValue(v.dek, titleBlob); err != nil {
		return Record{}, fmt.Errorf("vault: failed to decrypt record title: %w", err)
	}
	if r.Subtitle, err = openValue(v.dek, subBlob); err != nil {
		return Record{}, fmt.Errorf("vault: failed to decrypt record subtitle: %w", err)
	}
	r.Created = time.Unix(created, 0)
	r.LastModified = time.Unix(lastModified, 0)
	return r, nil
}

// SaveRecord inserts or updates a record together with its contents in one
// transaction. Content positions are renumbered to a contiguous sequence in
// slice order. On success the assigned ids are written back into record and
// contents.
func (v *Vault) SaveRecord(record *Record, contents []Content) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.dek == nil {
		return ErrVaultLocked
	}
	for i := range contents {
		if !field.Known(contents[i].Kind) {
			return fmt.Errorf("vault: unknown content kind %q", contents[i].Kind)
		}
	}

	now := time.Now()

	titleBlob, err := sealValue(v.dek, record.Title)
	if err != nil {
		return fmt.Errorf("vault: failed to encrypt record title: %w", err)
	}
	subBlob, err := sealValue(v.dek, record.Subtitle)
	if err != nil {
		return fmt.Errorf("vault: failed to encrypt record subtitle: %w", err)
	}

	tx, err := v.db.Begin()
	if err != nil {
		return fmt.Errorf("vault: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if record.ID == 0 {
		record.Created = now
		res, err := tx.Exec(
			"INSERT INTO records(title, subtitle, category, created, last_modified) VALUES(?, ?, ?, ?, ?)",
			titleBlob, subBlob, string(record.Category), now.Unix(), now.Unix(),
		)
		if err != nil {
			return fmt.Errorf("vault: failed to insert record: %w", err)
		}
		record.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("vault: failed to read record id: %w", err)
		}
	} else {
		res, err := tx.Exec(
			"UPDATE records SET title = ?, subtitle = ?, category = ?, last_modified = ? WHERE id = ?",
			titleBlob, subBlob, string(record.Category), now.Unix(), record.ID,
		)
		if err != nil {
			return fmt.Errorf("vault: failed to update record: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("vault: failed to check record update: %w", err)
		}
		if n == 0 {
			return ErrRecordNotFound
		}
	}
	record.LastModified = now

	for i := range contents {
		c := &contents[i]
		c.RecordID = record.ID
		c.Position = i

		labelBlob, err := sealValue(v.dek, c.Label)
		if err != nil {
			return fmt.Errorf("vault: failed to encrypt content label: %w", err)
		}
		valueBlob, err := sealValue(v.contentKey(c.Kind), c.Value)
		if err != nil {
			return fmt.Errorf("vault: failed to encrypt content value: %w", err)
		}

		if c.ID == 0 {
			res, err := tx.Exec(
				"INSERT INTO contents(record_id, label, position, required, kind, value) VALUES(?, ?, ?, ?, ?, ?)",
				c.RecordID, labelBlob, c.Position, c.Required, string(c.Kind), valueBlob,
			)
			if err != nil {
				return fmt.Errorf("vault: failed to insert content: %w", err)
			}
			c.ID, err = res.LastInsertId()
			if err != nil {
				return fmt.Errorf("vault: failed to read content id: %w", err)
			}
		} else {
			res, err := tx.Exec(
				"UPDATE contents SET label = ?, position = ?, required = ?, kind = ?, value = ? WHERE id = ? AND record_id = ?",
				labelBlob, c.Position, c.Required, string(c.Kind), valueBlob, c.ID, c.RecordID,
			)
			if err != nil {
				return fmt.Errorf("vault: failed to update content: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("vault: failed to check content update: %w", err)
			}
			if n == 0 {
				return ErrContentNotFound
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("vault: failed to commit record: %w", err)
	}
	return nil
}

// ContentsForRecord returns a record's contents ordered by position. Values
// of sensitive kinds are left empty; use ContentValue to fetch them.
func (v *Vault) ContentsForRecord(recordID int64) ([]Content, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.dek == nil {
		return nil, ErrVaultLocked
	}

	rows, err := v.db.Query(
		"SELECT id, record_id, label, position, required, kind, value FROM contents WHERE record_id = ? ORDER BY position",
		recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to query contents: %w", err)
	}
	defer rows.Close()

	var contents []Content
	for rows.Next() {
		var (
			c                    Content
			labelBlob, valueBlob []byte
			kind                 string
		)
		if err := rows.Scan(&c.ID, &c.RecordID, &labelBlob, &c.Position, &c.Required, &kind, &valueBlob); err != nil {
			return nil, fmt.Errorf("vault: failed to scan content: %w", err)
		}
		c.Kind = field.Kind(kind)

		if c.Label, err = openValue(v.dek, labelBlob); err != nil {
			return nil, fmt.Errorf("vault: failed to decrypt content label: %w", err)
		}
		if !field.Sensitive(c.Kind) {
			if c.Value, err = openValue(v.dek, valueBlob); err != nil {
				return nil, fmt.Errorf("vault: failed to decrypt content value: %w", err)
			}
		}
		contents = append(contents, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vault: failed to iterate contents: %w", err)
	}
	return contents, nil
}

// Content returns one content row with its value decrypted, regardless of
// kind.
func (v *Vault) Content(id int64) (Content, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.dek == nil {
		return Content{}, ErrVaultLocked
	}

	var (
		c                    Content
		labelBlob, valueBlob []byte
		kind                 string
	)
	err := v.db.QueryRow(
		"SELECT id, record_id, label, position, required, kind, value FROM contents WHERE id = ?", id,
	).Scan(&c.ID, &c.RecordID, &labelBlob, &c.Position, &c.Required, &kind, &valueBlob)
	if errors.Is(err, sql.ErrNoRows) {
		return Content{}, ErrContentNotFound
	}
	if err != nil {
		return Content{}, fmt.Errorf("vault: failed to load content: %w", err)
	}
	c.Kind = field.Kind(kind)

	if c.Label, err = openValue(v.dek, labelBlob); err != nil {
		return Content{}, fmt.Errorf("vault: failed to decrypt content label: %w", err)
	}
	if c.Value, err = openValue(v.contentKey(c.Kind), valueBlob); err != nil {
		return Content{}, fmt.Errorf("vault: failed to decrypt content value: %w", err)
	}
	return c, nil
}

// ContentValue decrypts and returns the plaintext value of one content row.
func (v *Vault) ContentValue(id int64) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.dek == nil {
		return "", ErrVaultLocked
	}

	var (
		kind      string
		valueBlob []byte
	)
	err := v.db.QueryRow("SELECT kind, value FROM contents WHERE id = ?", id).Scan(&kind, &valueBlob)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrContentNotFound
	}
	if err != nil {
		return "", fmt.Errorf("vault: failed to load content: %w", err)
	}

	value, err := openValue(v.contentKey(field.Kind(kind)), valueBlob)
	if err != nil {
		return "", fmt.Errorf("vault: failed to decrypt content value: %w", err)
	}
	return value, nil
}

// DeleteRecord removes a record and, via the foreign key cascade, all of
// its contents.
func (v *Vault) DeleteRecord(id int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.dek == nil {
		return ErrVaultLocked
	}

	res, err := v.db.Exec("DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("vault: failed to delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("vault: failed to check record delete: %w", err)
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteContent removes one content row. Required contents are protected;
// the remaining rows are renumbered to keep positions contiguous.
func (v *Vault) DeleteContent(id int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.dek == nil {
		return ErrVaultLocked
	}

	tx, err := v.db.Begin()
	if err != nil {
		return fmt.Errorf("vault: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		recordID int64
		required bool
	)
	err = tx.QueryRow("SELECT record_id, required FROM contents WHERE id = ?", id).Scan(&recordID, &required)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrContentNotFound
	}
	if err != nil {
		return fmt.Errorf("vault: failed to load content: %w", err)
	}
	if required {
		return ErrContentRequired
	}

	if _, err := tx.Exec("DELETE FROM contents WHERE id = ?", id); err != nil {
		return fmt.Errorf("vault: failed to delete content: %w", err)
	}

	rows, err := tx.Query("SELECT id FROM contents WHERE record_id = ? ORDER BY position", recordID)
	if err != nil {
		return fmt.Errorf("vault: failed to query remaining contents: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var cid int64
		if err := rows.Scan(&cid); err != nil {
			rows.Close()
			return fmt.Errorf("vault: failed to scan content id: %w", err)
		}
		ids = append(ids, cid)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("vault: failed to iterate contents: %w", err)
	}
	rows.Close()

	for pos, cid := range ids {
		if _, err := tx.Exec("UPDATE contents SET position = ? WHERE id = ?", pos, cid); err != nil {
			return fmt.Errorf("vault: failed to renumber contents: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("vault: failed to commit content delete: %w", err)
	}
	return nil
}

// contentKey selects the encryption key for a content value: sensitive
// kinds use the field key, everything else the data key.
func (v *Vault) contentKey(kind field.Kind) []byte {
	if field.Sensitive(kind) {
		return v.fek
	}
	return v.dek
}

func (v *Vault) scanRecord(rows *sql.Rows) (Record, error) {
	var (
		r                     Record
		titleBlob, subBlob    []byte
		created, lastModified int64
	)
	if err := rows.Scan(&r.ID, &titleBlob, &subBlob, &r.Category, &created, &lastModified); err != nil {
		return Record{}, fmt.Errorf("vault: failed to scan record: %w", err)
	}

	var err error
	if r.Title, err = openValue(v.dek, titleBlob); err != nil {
		return Record{}, fmt.Errorf("vault: failed to decrypt record title: %w", err)
	}
	if r.Subtitle, err = openValue(v.dek, subBlob); err != nil {
		return Record{}, fmt.Errorf("vault: failed to decrypt record subtitle: %w", err)
	}
	r.Created = time.Unix(created, 0)
	r.LastModified = time.Unix(lastModified, 0)
	return r, nil
}
