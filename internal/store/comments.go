package store

import (
	"errors"
	"strings"
	"unicode/utf8"

	"writeflow/internal/models"
	"writeflow/internal/utils"

	"gorm.io/gorm"
)

// ThreadNode is one comment with its replies attached, down to the
// traversal depth limit.
type ThreadNode struct {
	models.Comment
	Children []*ThreadNode `json:"children"`
}

// DeleteCommentResult distinguishes "deleted" from "auth failed" without
// an error, so the caller can show an inline message and keep its state.
type DeleteCommentResult struct {
	Deleted bool   `json:"deleted"`
	Reason  string `json:"reason,omitempty"`
}

// AddComment validates and stores a comment, optionally as a reply. The
// parent must already exist under the same post, which is what keeps the
// reply graph acyclic.
func (s *Store) AddComment(pid string, actor *models.Identity, parentCid, text, nickname, password string) (*models.Comment, error) {
	if err := s.checkBanned(actor.ID); err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, invalid("text", "must not be empty")
	}
	nickname = strings.TrimSpace(nickname)
	if utf8.RuneCountInString(nickname) > MaxNicknameRunes {
		return nil, invalid("nickname", "longer than 10 characters")
	}

	post, err := s.findPost(pid)
	if err != nil {
		return nil, err
	}

	var parentID *uint
	if parentCid != "" {
		var parent models.Comment
		err := s.db.Where("cid = ? AND post_id = ?", parentCid, post.ID).First(&parent).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		parentID = &parent.ID
	}

	// The post stripe serializes anonymous numbering: two first-time
	// commenters must never mint the same anon-N.
	unlock := s.lock2("ratelimit:"+ActionComment+":"+actor.Token, "comments:"+itoa(post.ID))
	defer unlock()

	if err := s.checkRateErr(ActionComment, actor.Token); err != nil {
		return nil, err
	}

	name := nickname
	if actor.Registered() {
		name = actor.DisplayName
	} else if name == "" {
		name, err = s.anonCommentName(post.ID, actor.ID)
		if err != nil {
			return nil, err
		}
	}

	comment := models.Comment{
		Cid:              utils.RandString(8),
		PostID:           post.ID,
		ParentID:         parentID,
		AuthorIdentityID: actor.ID,
		AuthorName:       name,
		Content:          text,
	}
	if !actor.Registered() && password != "" {
		hash, err := utils.HashPassword(password)
		if err != nil {
			return nil, err
		}
		comment.PasswordHash = hash
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return s.recordRate(tx, ActionComment, actor.Token)
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// anonCommentName gives an anonymous commenter a per-post stable number:
// the same identity always gets the name of its first comment back, a new
// identity gets the next free slot.
func (s *Store) anonCommentName(postID, identityID uint) (string, error) {
	var prior models.Comment
	err := s.db.Where("post_id = ? AND author_identity_id = ?", postID, identityID).
		Order("id ASC").First(&prior).Error
	if err == nil {
		return prior.AuthorName, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var n int64
	err = s.db.Model(&models.Comment{}).
		Where("post_id = ?", postID).
		Where("author_identity_id IN (?)", s.db.Model(&models.Identity{}).
			Select("id").Where("kind = ?", models.IdentityAnonymous)).
		Distinct("author_identity_id").
		Count(&n).Error
	if err != nil {
		return "", err
	}
	return "anon-" + itoa(uint(n)+1), nil
}

// DeleteComment removes a comment and, with it, all of its descendants.
// Authorization failure is reported through the result, not as an error.
func (s *Store) DeleteComment(pid, cid string, actor *models.Identity, password string) (*DeleteCommentResult, error) {
	if err := s.checkBanned(actor.ID); err != nil {
		return nil, err
	}

	post, err := s.findPostAny(pid)
	if err != nil {
		return nil, err
	}

	var comment models.Comment
	err = s.db.Where("cid = ? AND post_id = ?", cid, post.ID).First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := authorizeAuthor(comment.AuthorIdentityID, comment.PasswordHash, actor, password); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return &DeleteCommentResult{Deleted: false, Reason: "unauthorized"}, nil
		}
		return nil, err
	}

	ids, err := s.subtreeIDs(post.ID, comment.ID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("target_type = ? AND target_id IN ?", models.TargetComment, ids).
			Delete(&models.Report{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, ids).Error
	})
	if err != nil {
		return nil, err
	}
	return &DeleteCommentResult{Deleted: true}, nil
}

// subtreeIDs collects a comment id and all ids reachable through parent
// links below it.
func (s *Store) subtreeIDs(postID, rootID uint) ([]uint, error) {
	var comments []models.Comment
	if err := s.db.Select("id, parent_id").Where("post_id = ?", postID).Find(&comments).Error; err != nil {
		return nil, err
	}

	children := make(map[uint][]uint)
	for _, c := range comments {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}

	ids := []uint{rootID}
	queue := []uint{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range children[id] {
			ids = append(ids, child)
			queue = append(queue, child)
		}
	}
	return ids, nil
}

// BuildThread returns the post's top-level comments with replies attached,
// recursively, stopping at the traversal depth limit. Deeper chains stay
// in storage but are not expanded here.
func (s *Store) BuildThread(pid, order string) ([]*ThreadNode, error) {
	post, err := s.findPost(pid)
	if err != nil {
		return nil, err
	}

	var comments []models.Comment
	if err := s.db.Where("post_id = ?", post.ID).Order("created_at ASC, id ASC").Find(&comments).Error; err != nil {
		return nil, err
	}

	byParent := make(map[uint][]models.Comment)
	var roots []models.Comment
	for _, c := range comments {
		if c.ParentID == nil {
			roots = append(roots, c)
		} else {
			byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
		}
	}

	if order == "newest" {
		// Children stay oldest-first; only the top level flips.
		for i, j := 0, len(roots)-1; i < j; i, j = i+1, j-1 {
			roots[i], roots[j] = roots[j], roots[i]
		}
	}

	var build func(c models.Comment, depth int) *ThreadNode
	build = func(c models.Comment, depth int) *ThreadNode {
		node := &ThreadNode{Comment: c, Children: []*ThreadNode{}}
		if depth >= ThreadDepthLimit {
			return node
		}
		for _, child := range byParent[c.ID] {
			node.Children = append(node.Children, build(child, depth+1))
		}
		return node
	}

	nodes := make([]*ThreadNode, 0, len(roots))
	for _, root := range roots {
		nodes = append(nodes, build(root, 0))
	}
	return nodes, nil
}
