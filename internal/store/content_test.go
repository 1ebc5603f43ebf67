package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"writeflow/internal/models"
)

func TestCreatePostValidation(t *testing.T) {
	s, _ := newTestStore(t)
	author := registeredIdentity(t, s, "mira")

	cases := []struct {
		name  string
		f     PostFields
		field string
	}{
		{"empty content", PostFields{BoardID: 1, Content: "   "}, "content"},
		{"oversize title", PostFields{BoardID: 1, Content: "x", Title: strings.Repeat("t", 51)}, "title"},
		{"too many tags", PostFields{BoardID: 1, Content: "x", Tags: manyTags(31)}, "tags"},
		{"bad board", PostFields{BoardID: 99, Content: "x"}, "board_id"},
		{"too many stamps", PostFields{BoardID: 1, Content: "x", Stamps: []string{"a", "b", "c", "d", "e", "f"}}, "stamps"},
		{"oversize stamp label", PostFields{BoardID: 1, Content: "x", Stamps: []string{strings.Repeat("s", 21)}}, "stamps"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.CreatePost(author, tc.f)
			var validation *ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if validation.Field != tc.field {
				t.Errorf("field = %q, want %q", validation.Field, tc.field)
			}
		})
	}
}

func manyTags(n int) []string {
	tags := make([]string, n)
	for i := range tags {
		tags[i] = "tag" + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	return tags
}

func TestCreatePostAnonymousNeedsPassword(t *testing.T) {
	s, _ := newTestStore(t)
	anon := anonIdentity(t, s)

	_, err := s.CreatePost(anon, PostFields{BoardID: 1, Content: "hi"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}

	post, err := s.CreatePost(anon, PostFields{BoardID: 1, Content: "hi", Password: "abc123"})
	if err != nil {
		t.Fatalf("CreatePost with password: %v", err)
	}
	if post.PasswordHash == "" {
		t.Error("anonymous post must store a password hash")
	}
	if post.IsRegisteredAuthor {
		t.Error("anonymous post marked registered")
	}
}

func TestCreatePostNormalizesTags(t *testing.T) {
	s, _ := newTestStore(t)
	author := registeredIdentity(t, s, "mira")

	post := mustCreatePost(t, s, author, PostFields{
		Tags: []string{" Go ", "go", "GORM", "", "gorm"},
	})

	got, err := s.GetPost(post.Pid)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if len(got.Tags) != 2 {
		t.Fatalf("tags = %d, want 2 after dedup", len(got.Tags))
	}
	if got.Tags[0].Name != "go" || got.Tags[1].Name != "gorm" {
		t.Errorf("tags = %q,%q, want go,gorm", got.Tags[0].Name, got.Tags[1].Name)
	}
}

func TestCreatePostDefaultStamps(t *testing.T) {
	s, _ := newTestStore(t)
	author := registeredIdentity(t, s, "mira")

	post := mustCreatePost(t, s, author, PostFields{})
	got, err := s.GetPost(post.Pid)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if len(got.Stamps) != len(defaultStampLabels) {
		t.Fatalf("stamps = %d, want default set of %d", len(got.Stamps), len(defaultStampLabels))
	}
}

func TestEditPostPasswordAuthorization(t *testing.T) {
	s, _ := newTestStore(t)
	anon := anonIdentity(t, s)
	post := mustCreatePost(t, s, anon, PostFields{Password: "abc123"})

	stranger := anonIdentity(t, s)
	fields := PostFields{BoardID: 1, Content: "edited"}

	if _, err := s.EditPost(post.Pid, stranger, "wrong-password", fields); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong password: err = %v, want ErrUnauthorized", err)
	}
	if _, err := s.EditPost(post.Pid, stranger, "", fields); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("empty password: err = %v, want ErrUnauthorized", err)
	}

	edited, err := s.EditPost(post.Pid, stranger, "abc123", fields)
	if err != nil {
		t.Fatalf("matching password: %v", err)
	}
	if edited.Content != "edited" {
		t.Errorf("content = %q, want edited", edited.Content)
	}
}

func TestEditPostAuthorWithoutPassword(t *testing.T) {
	s, _ := newTestStore(t)
	anon := anonIdentity(t, s)
	post := mustCreatePost(t, s, anon, PostFields{Password: "abc123"})

	if _, err := s.EditPost(post.Pid, anon, "", PostFields{BoardID: 1, Content: "mine"}); err != nil {
		t.Fatalf("author edit: %v", err)
	}
}

func TestEditPostKeepsCommentCount(t *testing.T) {
	s, _ := newTestStore(t)
	author := registeredIdentity(t, s, "mira")
	post := mustCreatePost(t, s, author, PostFields{})

	if _, err := s.AddComment(post.Pid, author, "", "a note", "", ""); err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	edited, err := s.EditPost(post.Pid, author, "", PostFields{BoardID: 1, Content: "rewritten"})
	if err != nil {
		t.Fatalf("EditPost: %v", err)
	}
	if edited.CommentCount != 1 {
		t.Errorf("comment count after edit = %d, want 1", edited.CommentCount)
	}
}

func TestEditRegisteredPostRejectsPassword(t *testing.T) {
	s, _ := newTestStore(t)
	author := registeredIdentity(t, s, "mira")
	post := mustCreatePost(t, s, author, PostFields{})

	stranger := anonIdentity(t, s)
	_, err := s.EditPost(post.Pid, stranger, "abc123", PostFields{BoardID: 1, Content: "nope"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized (no password substitutes for identity)", err)
	}
}

func TestDeletePostCascades(t *testing.T) {
	s, _ := newTestStore(t)
	author := registeredIdentity(t, s, "mira")
	reader := anonIdentity(t, s)
	post := mustCreatePost(t, s, author, PostFields{})

	comment, err := s.AddComment(post.Pid, reader, "", "nice one", "", "")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if _, err := s.Like(post.Pid, reader); err != nil {
		t.Fatalf("Like: %v", err)
	}
	if _, err := s.View(post.Pid, reader); err != nil {
		t.Fatalf("View: %v", err)
	}
	if _, err := s.ClickStamp(post.Pid, "empathy", reader); err != nil {
		t.Fatalf("ClickStamp: %v", err)
	}
	if err := s.Report(models.TargetPost, post.Pid, "", reader, "spam", ""); err != nil {
		t.Fatalf("Report: %v", err)
	}

	if err := s.DeletePost(post.Pid, author, ""); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}

	if _, err := s.GetPost(post.Pid); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetPost after delete: err = %v, want ErrNotFound", err)
	}

	counts := map[string]int64{}
	for name, model := range map[string]interface{}{
		"comments":      &models.Comment{},
		"likes":         &models.LikeRecord{},
		"views":         &models.ViewRecord{},
		"stamp_records": &models.StampRecord{},
		"stamps":        &models.PostStamp{},
		"tags":          &models.PostTag{},
		"reports":       &models.Report{},
	} {
		var n int64
		if err := s.db.Model(model).Where("post_id = ?", post.ID).Count(&n).Error; err != nil {
			t.Fatalf("count %s: %v", name, err)
		}
		counts[name] = n
	}
	for name, n := range counts {
		if n != 0 {
			t.Errorf("%d %s rows survived the cascade", n, name)
		}
	}
	_ = comment
}

func TestDeletePostUnauthorizedKeepsEverything(t *testing.T) {
	s, _ := newTestStore(t)
	author := registeredIdentity(t, s, "mira")
	post := mustCreatePost(t, s, author, PostFields{})

	stranger := anonIdentity(t, s)
	if err := s.DeletePost(post.Pid, stranger, "whatever"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if _, err := s.GetPost(post.Pid); err != nil {
		t.Fatalf("post should survive: %v", err)
	}
}

func TestListPostsFiltersAndSort(t *testing.T) {
	s, clock := newTestStore(t)
	author := registeredIdentity(t, s, "mira")
	other := registeredIdentity(t, s, "finn")
	liker := anonIdentity(t, s)

	first := mustCreatePost(t, s, author, PostFields{Title: "morning pages", Tags: []string{"Writing"}})
	clock.Advance(time.Minute)
	second := mustCreatePost(t, s, other, PostFields{Title: "lunch walk", BoardID: 2})
	clock.Advance(time.Minute)
	third := mustCreatePost(t, s, author, PostFields{Title: "evening notes", Content: "about writing"})

	if _, err := s.Like(second.Pid, liker); err != nil {
		t.Fatalf("Like: %v", err)
	}

	t.Run("default newest first", func(t *testing.T) {
		page, err := s.ListPosts(ListFilter{})
		if err != nil {
			t.Fatalf("ListPosts: %v", err)
		}
		if len(page.Items) != 3 {
			t.Fatalf("items = %d, want 3", len(page.Items))
		}
		if page.Items[0].ID != third.ID || page.Items[2].ID != first.ID {
			t.Errorf("order = %d,%d,%d, want newest first", page.Items[0].ID, page.Items[1].ID, page.Items[2].ID)
		}
	})

	t.Run("popular sorts by likes", func(t *testing.T) {
		page, err := s.ListPosts(ListFilter{Sort: SortPopular})
		if err != nil {
			t.Fatalf("ListPosts: %v", err)
		}
		if page.Items[0].ID != second.ID {
			t.Errorf("top = %d, want the liked post %d", page.Items[0].ID, second.ID)
		}
	})

	t.Run("board filter", func(t *testing.T) {
		page, err := s.ListPosts(ListFilter{Board: "lounge"})
		if err != nil {
			t.Fatalf("ListPosts: %v", err)
		}
		if len(page.Items) != 1 || page.Items[0].ID != second.ID {
			t.Errorf("board filter returned %d items", len(page.Items))
		}
	})

	t.Run("unknown board", func(t *testing.T) {
		if _, err := s.ListPosts(ListFilter{Board: "nowhere"}); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("free text over title and content", func(t *testing.T) {
		page, err := s.ListPosts(ListFilter{Query: "WRITING"})
		if err != nil {
			t.Fatalf("ListPosts: %v", err)
		}
		if len(page.Items) != 1 || page.Items[0].ID != third.ID {
			t.Fatalf("query matched %d items, want the content match", len(page.Items))
		}
	})

	t.Run("tag exact match is case-insensitive", func(t *testing.T) {
		page, err := s.ListPosts(ListFilter{Tag: "wRiTiNg"})
		if err != nil {
			t.Fatalf("ListPosts: %v", err)
		}
		if len(page.Items) != 1 || page.Items[0].ID != first.ID {
			t.Fatalf("tag filter matched %d items", len(page.Items))
		}
	})

	t.Run("author filter", func(t *testing.T) {
		page, err := s.ListPosts(ListFilter{AuthorID: author.ID})
		if err != nil {
			t.Fatalf("ListPosts: %v", err)
		}
		if len(page.Items) != 2 {
			t.Fatalf("author filter matched %d items, want 2", len(page.Items))
		}
	})
}

func TestListPostsPaginationIsDeterministic(t *testing.T) {
	s, _ := newTestStore(t)
	author := registeredIdentity(t, s, "mira")

	// Same created_at for every post: ordering must fall back to id.
	for i := 0; i < PageSize+3; i++ {
		mustCreatePost(t, s, author, PostFields{Content: "entry"})
	}

	first, err := s.ListPosts(ListFilter{Page: 1})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	second, err := s.ListPosts(ListFilter{Page: 2})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}

	if len(first.Items) != PageSize {
		t.Fatalf("page 1 has %d items, want %d", len(first.Items), PageSize)
	}
	if len(second.Items) != 3 {
		t.Fatalf("page 2 has %d items, want 3", len(second.Items))
	}
	if first.TotalPages != 2 {
		t.Errorf("total pages = %d, want 2", first.TotalPages)
	}

	seen := map[uint]bool{}
	for _, p := range append(first.Items, second.Items...) {
		if seen[p.ID] {
			t.Fatalf("post %d appeared on both pages", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestListMyPostsIncludesHidden(t *testing.T) {
	s, _ := newTestStore(t)
	author := registeredIdentity(t, s, "mira")
	post := mustCreatePost(t, s, author, PostFields{})

	if err := s.db.Model(&models.Post{}).Where("id = ?", post.ID).Update("hidden", true).Error; err != nil {
		t.Fatalf("hide post: %v", err)
	}

	if _, err := s.GetPost(post.Pid); !errors.Is(err, ErrNotFound) {
		t.Fatalf("hidden post visible through GetPost: %v", err)
	}
	listed, err := s.ListPosts(ListFilter{})
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(listed.Items) != 0 {
		t.Error("hidden post leaked into the public listing")
	}

	mine, err := s.ListMyPosts(author, 1)
	if err != nil {
		t.Fatalf("ListMyPosts: %v", err)
	}
	if len(mine.Items) != 1 {
		t.Fatalf("my posts = %d, want the hidden post included", len(mine.Items))
	}
}

func TestBoardStats(t *testing.T) {
	s, _ := newTestStore(t)
	author := registeredIdentity(t, s, "mira")

	mustCreatePost(t, s, author, PostFields{BoardID: 1})
	mustCreatePost(t, s, author, PostFields{BoardID: 1})
	mustCreatePost(t, s, author, PostFields{BoardID: 2})

	stats, err := s.BoardStats()
	if err != nil {
		t.Fatalf("BoardStats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats = %d boards, want 2", len(stats))
	}
	if stats[0].Count != 2 || stats[1].Count != 1 {
		t.Errorf("counts = %d,%d, want 2,1", stats[0].Count, stats[1].Count)
	}
	if stats[0].Ratio < 0.66 || stats[0].Ratio > 0.67 {
		t.Errorf("ratio = %f, want 2/3", stats[0].Ratio)
	}
}

func TestCommentCountDerived(t *testing.T) {
	s, _ := newTestStore(t)
	author := registeredIdentity(t, s, "mira")
	reader := anonIdentity(t, s)
	post := mustCreatePost(t, s, author, PostFields{})

	for i := 0; i < 3; i++ {
		if _, err := s.AddComment(post.Pid, reader, "", "hey", "", ""); err != nil {
			t.Fatalf("AddComment %d: %v", i, err)
		}
	}

	got, err := s.GetPost(post.Pid)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.CommentCount != 3 {
		t.Errorf("comment count = %d, want 3", got.CommentCount)
	}
}
