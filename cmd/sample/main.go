// Command sample runs a small blog API demonstrating routing,
// parameter binding, dependency injection, and the generated docs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/tatami-web/tatami"
)

// Post is a blog post model.
type Post struct {
	ID        int        `json:"id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	Comments  []*Comment `json:"comments,omitempty"`
}

// Comment is a reader comment on a post.
type Comment struct {
	ID     uuid.UUID `json:"id"`
	Author string    `json:"author"`
	Text   string    `json:"text"`
}

// PostStore is an in-memory post database, injected into handlers.
type PostStore struct {
	mu     sync.RWMutex
	nextID int
	posts  map[int]*Post
}

func NewPostStore() *PostStore {
	return &PostStore{nextID: 1, posts: make(map[int]*Post)}
}

func (s *PostStore) Get(id int) (*Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	return p, ok
}

func (s *PostStore) List() []*Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *PostStore) Create(title, body string) *Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &Post{ID: s.nextID, Title: title, Body: body, CreatedAt: time.Now().UTC()}
	s.nextID++
	s.posts[p.ID] = p
	return p
}

func (s *PostStore) Delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return false
	}
	delete(s.posts, id)
	return true
}

type getPostRequest struct {
	PostID       int  `path:"post_id"`
	ShowComments bool `query:"show_comments" default:"false"`

	Store *PostStore `inject:""`
}

func getPost(_ context.Context, req *getPostRequest) (*Post, error) {
	p, ok := req.Store.Get(req.PostID)
	if !ok {
		return nil, tatami.Errorf(404, "post %d not found", req.PostID)
	}
	if !req.ShowComments {
		trimmed := *p
		trimmed.Comments = nil
		return &trimmed, nil
	}
	return p, nil
}

type listPostsRequest struct {
	Limit *int `query:"limit"`

	Store *PostStore `inject:""`
}

type postList struct {
	Posts []*Post `json:"posts"`
	Total int     `json:"total"`
}

func listPosts(_ context.Context, req *listPostsRequest) (*postList, error) {
	posts := req.Store.List()
	total := len(posts)
	if req.Limit != nil && *req.Limit < len(posts) {
		posts = posts[:*req.Limit]
	}
	return &postList{Posts: posts, Total: total}, nil
}

type createPostBody struct {
	Title string `json:"title" required:"true"`
	Body  string `json:"body" required:"true"`
}

type createPostRequest struct {
	Body createPostBody

	Store *PostStore `inject:""`
}

func createPost(_ context.Context, req *createPostRequest) (*Post, error) {
	return req.Store.Create(req.Body.Title, req.Body.Body), nil
}

type deletePostRequest struct {
	PostID int `path:"post_id"`

	Store *PostStore `inject:""`
}

func deletePost(_ context.Context, req *deletePostRequest) (*tatami.Void, error) {
	if !req.Store.Delete(req.PostID) {
		return nil, tatami.Errorf(404, "post %d not found", req.PostID)
	}
	return &tatami.Void{}, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := tatami.LoadConfig(".", os.Getenv("APP_MODE"))
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}
	if cfg.AppName == "tatami" {
		cfg.AppName = "Blog API"
	}

	app := tatami.NewFromConfig(cfg)
	tatami.Provide[*PostStore](app.Registry(), NewPostStore)

	app.Use(
		tatami.Recovery(),
		tatami.RequestID(),
		tatami.Logger(logger),
		tatami.RateLimit(tatami.RateLimitConfig{Rate: 50, Burst: 100}),
	)

	posts := tatami.NewRouter("/post")
	tatami.Get(posts, "", listPosts, tatami.WithSummary("List posts"))
	tatami.Post(posts, "", createPost, tatami.WithStatus(201))
	tatami.Get(posts, "/{post_id}", getPost)
	tatami.Delete(posts, "/{post_id}", deletePost)
	app.Include(posts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("listening", "addr", cfg.Addr, "docs", fmt.Sprintf("http://localhost%s%s", cfg.Addr, cfg.DocsPath))
	if err := app.ListenAndServe(ctx, cfg.Addr); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}
