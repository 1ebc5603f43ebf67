package store

import (
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"writeflow/internal/models"
	"writeflow/internal/utils"

	"gorm.io/gorm"
)

// Sort orders accepted by ListPosts.
const (
	SortNewest  = "newest"
	SortPopular = "popular"
)

// defaultStampLabels is the stamp set a post gets when the author does not
// define one. Labels map onto the internal stamp ids positionally, the
// same way custom labels do.
var defaultStampLabels = []string{"empathy", "comfort", "cheer"}

// stampIDs are the internal reaction slots. A post enables at most
// MaxStamps of them, each carrying an author-chosen label.
var stampIDs = []string{"empathy", "comfort", "cheer", "funny", "moved"}

// PostFields carries the author-supplied parts of a post write.
type PostFields struct {
	BoardID  uint
	Title    string
	Content  string
	Tags     []string
	Nickname string
	Stamps   []string // labels; ignored on edit, the set is fixed at creation
	Password string   // required when the author is anonymous
}

// ListFilter narrows and orders a post listing.
type ListFilter struct {
	Board    string
	Query    string
	Tag      string
	AuthorID uint
	Sort     string
	Page     int
}

// Page is one page of posts with stable ordering.
type Page struct {
	Items      []models.Post `json:"items"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	Total      int64         `json:"total"`
}

// BoardStat is the share of visible posts per board.
type BoardStat struct {
	Board string  `json:"board"`
	Count int64   `json:"count"`
	Ratio float64 `json:"ratio"`
}

// CreatePost validates and stores a new post. The ban gate runs before any
// validation; the post cooldown is checked before the write and recorded
// inside the same transaction, so a rejected write never burns the
// cooldown.
func (s *Store) CreatePost(actor *models.Identity, f PostFields) (*models.Post, error) {
	if err := s.checkBanned(actor.ID); err != nil {
		return nil, err
	}

	if !actor.Registered() && f.Password == "" {
		return nil, ErrUnauthorized
	}
	if err := validatePostFields(&f); err != nil {
		return nil, err
	}

	var board models.Board
	if err := s.db.First(&board, f.BoardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("board_id", "no such board")
		}
		return nil, err
	}

	stamps, err := buildStampSet(f.Stamps)
	if err != nil {
		return nil, err
	}

	unlock := s.lock("ratelimit:" + ActionPost + ":" + actor.Token)
	defer unlock()

	if err := s.checkRateErr(ActionPost, actor.Token); err != nil {
		return nil, err
	}

	post := models.Post{
		Pid:                utils.RandString(8),
		BoardID:            board.ID,
		Title:              strings.TrimSpace(f.Title),
		Content:            f.Content,
		AuthorIdentityID:   actor.ID,
		AuthorName:         displayName(actor, f.Nickname),
		IsRegisteredAuthor: actor.Registered(),
		Tags:               tagRows(normalizeTags(f.Tags)),
		Stamps:             stamps,
	}
	if !actor.Registered() {
		hash, err := utils.HashPassword(f.Password)
		if err != nil {
			return nil, err
		}
		post.PasswordHash = hash
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		return s.recordRate(tx, ActionPost, actor.Token)
	})
	if err != nil {
		return nil, err
	}
	post.Board = board
	return &post, nil
}

// EditPost rewrites an existing post's title, content, board and tags.
// The stamp set and counters are untouched.
func (s *Store) EditPost(pid string, actor *models.Identity, password string, f PostFields) (*models.Post, error) {
	if err := s.checkBanned(actor.ID); err != nil {
		return nil, err
	}

	post, err := s.findPostAny(pid)
	if err != nil {
		return nil, err
	}
	if err := authorizeAuthor(post.AuthorIdentityID, post.PasswordHash, actor, password); err != nil {
		return nil, err
	}
	if err := validatePostFields(&f); err != nil {
		return nil, err
	}

	var board models.Board
	if err := s.db.First(&board, f.BoardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("board_id", "no such board")
		}
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(post).Updates(map[string]interface{}{
			"board_id": board.ID,
			"title":    strings.TrimSpace(f.Title),
			"content":  f.Content,
		}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}
		tags := tagRows(normalizeTags(f.Tags))
		for i := range tags {
			tags[i].PostID = post.ID
		}
		if len(tags) > 0 {
			if err := tx.Create(&tags).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.getPostByID(post.ID)
}

// DeletePost removes a post and everything that exists only in reference
// to it: comments, engagement records, stamps, tags and reports. The
// cascade is a single transaction; a partial delete is never observable.
func (s *Store) DeletePost(pid string, actor *models.Identity, password string) error {
	if err := s.checkBanned(actor.ID); err != nil {
		return err
	}

	post, err := s.findPostAny(pid)
	if err != nil {
		return err
	}
	if err := authorizeAuthor(post.AuthorIdentityID, post.PasswordHash, actor, password); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{
			&models.Comment{},
			&models.LikeRecord{},
			&models.ViewRecord{},
			&models.StampRecord{},
			&models.PostStamp{},
			&models.PostTag{},
			&models.Report{},
		} {
			if err := tx.Where("post_id = ?", post.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Post{}, post.ID).Error
	})
}

// GetPost returns a visible post with its board, tags, stamps and comment
// count filled.
func (s *Store) GetPost(pid string) (*models.Post, error) {
	var post models.Post
	err := s.db.Preload("Board").Preload("Tags").Preload("Stamps").
		Where("pid = ? AND hidden = ?", pid, false).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	posts := []models.Post{post}
	if err := s.fillCommentCounts(posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// ListPosts returns one page of visible posts. Ordering is fully
// deterministic: ties beyond the sort key fall back to created_at then id,
// so pagination never shuffles rows between pages.
func (s *Store) ListPosts(f ListFilter) (*Page, error) {
	query := s.db.Model(&models.Post{}).Where("hidden = ?", false)

	if f.Board != "" {
		var board models.Board
		if err := s.db.Where("name = ?", f.Board).First(&board).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		query = query.Where("board_id = ?", board.ID)
	}
	if f.Query != "" {
		pattern := "%" + strings.ToLower(f.Query) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", pattern, pattern)
	}
	if f.Tag != "" {
		query = query.Where("id IN (?)", s.db.Model(&models.PostTag{}).
			Select("post_id").Where("name = ?", strings.ToLower(strings.TrimSpace(f.Tag))))
	}
	if f.AuthorID != 0 {
		query = query.Where("author_identity_id = ?", f.AuthorID)
	}

	switch f.Sort {
	case SortPopular:
		query = query.Order("like_count DESC, created_at DESC, id DESC")
	default:
		query = query.Order("created_at DESC, id DESC")
	}

	return s.page(query, f.Page)
}

// ListMyPosts returns the actor's own posts, hidden ones included, newest
// first.
func (s *Store) ListMyPosts(actor *models.Identity, pageNum int) (*Page, error) {
	query := s.db.Model(&models.Post{}).
		Where("author_identity_id = ?", actor.ID).
		Order("created_at DESC, id DESC")
	return s.page(query, pageNum)
}

// BoardStats returns the visible-post share per board.
func (s *Store) BoardStats() ([]BoardStat, error) {
	var boards []models.Board
	if err := s.db.Order("id ASC").Find(&boards).Error; err != nil {
		return nil, err
	}

	type countRow struct {
		BoardID uint
		Count   int64
	}
	var rows []countRow
	if err := s.db.Model(&models.Post{}).
		Select("board_id, COUNT(*) as count").
		Where("hidden = ?", false).
		Group("board_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	var total int64
	for _, r := range rows {
		counts[r.BoardID] = r.Count
		total += r.Count
	}

	stats := make([]BoardStat, 0, len(boards))
	for _, b := range boards {
		stat := BoardStat{Board: b.Name, Count: counts[b.ID]}
		if total > 0 {
			stat.Ratio = float64(stat.Count) / float64(total)
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

func (s *Store) page(query *gorm.DB, pageNum int) (*Page, error) {
	if pageNum < 1 {
		pageNum = 1
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	totalPages := int(math.Ceil(float64(total) / float64(PageSize)))
	if totalPages == 0 {
		totalPages = 1
	}

	var posts []models.Post
	if err := query.Preload("Board").Preload("Tags").Preload("Stamps").
		Limit(PageSize).Offset((pageNum - 1) * PageSize).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	if err := s.fillCommentCounts(posts); err != nil {
		return nil, err
	}

	return &Page{Items: posts, Page: pageNum, TotalPages: totalPages, Total: total}, nil
}

// fillCommentCounts batch-fills the derived comment count on posts.
func (s *Store) fillCommentCounts(posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	postIDs := make([]uint, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	type countResult struct {
		PostID uint
		Count  int
	}
	var results []countResult
	if err := s.db.Model(&models.Comment{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&results).Error; err != nil {
		return err
	}

	countMap := make(map[uint]int, len(results))
	for _, r := range results {
		countMap[r.PostID] = r.Count
	}
	for i := range posts {
		posts[i].CommentCount = countMap[posts[i].ID]
	}
	return nil
}

// findPost resolves a visible post by its public id.
func (s *Store) findPost(pid string) (*models.Post, error) {
	var post models.Post
	err := s.db.Where("pid = ? AND hidden = ?", pid, false).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// findPostAny resolves a post whether hidden or not; author-scoped
// operations (edit, delete) still work on a hidden post.
func (s *Store) findPostAny(pid string) (*models.Post, error) {
	var post models.Post
	err := s.db.Where("pid = ?", pid).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *Store) getPostByID(id uint) (*models.Post, error) {
	var post models.Post
	err := s.db.Preload("Board").Preload("Tags").Preload("Stamps").First(&post, id).Error
	if err != nil {
		return nil, err
	}
	posts := []models.Post{post}
	if err := s.fillCommentCounts(posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// authorizeAuthor is the shared edit/delete rule: the author identity
// always passes; anyone else passes only when the content is
// anonymous-authored and the supplied password matches.
func authorizeAuthor(authorID uint, passwordHash string, actor *models.Identity, password string) error {
	if actor.ID == authorID {
		return nil
	}
	if passwordHash == "" {
		// Registered-authored content: no password can substitute.
		return ErrUnauthorized
	}
	if password == "" || !utils.CheckPassword(passwordHash, password) {
		return ErrUnauthorized
	}
	return nil
}

func validatePostFields(f *PostFields) error {
	if strings.TrimSpace(f.Content) == "" {
		return invalid("content", "must not be empty")
	}
	if utf8.RuneCountInString(strings.TrimSpace(f.Title)) > MaxTitleRunes {
		return invalid("title", "longer than 50 characters")
	}
	if utf8.RuneCountInString(f.Nickname) > MaxNicknameRunes {
		return invalid("nickname", "longer than 10 characters")
	}
	if len(normalizeTags(f.Tags)) > MaxTags {
		return invalid("tags", "more than 30 tags")
	}
	return nil
}

// normalizeTags trims, lower-cases and dedups while preserving order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func tagRows(names []string) []models.PostTag {
	rows := make([]models.PostTag, 0, len(names))
	for _, name := range names {
		rows = append(rows, models.PostTag{Name: name})
	}
	return rows
}

// buildStampSet maps author-chosen labels onto the internal stamp slots,
// positionally. Empty input falls back to the default set.
func buildStampSet(labels []string) ([]models.PostStamp, error) {
	seen := make(map[string]bool, len(labels))
	var clean []string
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" || seen[label] {
			continue
		}
		if utf8.RuneCountInString(label) > MaxStampLabelRunes {
			return nil, invalid("stamps", "label longer than 20 characters")
		}
		seen[label] = true
		clean = append(clean, label)
	}
	if len(clean) > MaxStamps {
		return nil, invalid("stamps", "more than 5 stamps")
	}
	if len(clean) == 0 {
		clean = defaultStampLabels
	}

	stamps := make([]models.PostStamp, 0, len(clean))
	for i, label := range clean {
		stamps = append(stamps, models.PostStamp{StampID: stampIDs[i], Label: label})
	}
	return stamps, nil
}

func displayName(actor *models.Identity, nickname string) string {
	nickname = strings.TrimSpace(nickname)
	if !actor.Registered() && nickname != "" {
		return nickname
	}
	return actor.DisplayName
}
