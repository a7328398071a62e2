package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var ErrNoToken = errors.New("no auth token configured")

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Body)
}

// RecipeIngredient is one ingredient line of a recipe.
type RecipeIngredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
}

// RecipeVideo describes the video a recipe was extracted from.
type RecipeVideo struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
	Link         string `json:"link"`
}

// Recipe is a saved recipe as returned by the backend.
type Recipe struct {
	ID             int64              `json:"id"`
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	Source         string             `json:"source"`
	Ingredients    []RecipeIngredient `json:"ingredients"`
	TechniqueHints []string           `json:"technique_hints"`
	CuisineType    string             `json:"cuisine_type"`
	EffortLevel    string             `json:"effort_level"`
	Vibe           string             `json:"vibe"`
	Video          *RecipeVideo       `json:"video"`
	Image          *string            `json:"image,omitempty"`
}

// VideoInfo is the oEmbed-style metadata of a video.
type VideoInfo struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
	Link         string `json:"link"`
}

// RecipeResult is the backend answer to an image upload.
type RecipeResult struct {
	ID   int64           `json:"id"`
	Name string          `json:"name"`
	Raw  json.RawMessage `json:"-"`
}

// Client talks to the recipe backend.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *slog.Logger
}

// NewClient creates a backend client. A nil httpClient uses a client without timeout,
// extraction calls can take minutes.
func NewClient(baseURL, token string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
		log:     logger.With("component", "api"),
	}
}

// SubmitVideo asks the backend to extract and save the recipe of a video.
// It returns once the recipe is persisted.
func (c *Client) SubmitVideo(ctx context.Context, videoID string) error {
	q := url.Values{}
	q.Set("video_id", videoID)
	q.Set("analyze", "true")

	start := time.Now()
	resp, err := c.do(ctx, http.MethodPost, "/captions?"+q.Encode(), nil, "")
	if err != nil {
		return fmt.Errorf("submit video %s: %w", videoID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	c.log.Info("caption processing complete", "video_id", videoID, "duration", time.Since(start))
	return nil
}

// SubmitImages uploads local images, in order, and returns the created recipe.
func (c *Client) SubmitImages(ctx context.Context, images []string) (*RecipeResult, error) {
	body, contentType, err := buildImageForm(images)
	if err != nil {
		return nil, err
	}
	c.log.Info("uploading images", "count", len(images), "size", humanize.Bytes(uint64(body.Len())))

	resp, err := c.do(ctx, http.MethodPost, "/captions/images-to-recipe", body, contentType)
	if err != nil {
		return nil, fmt.Errorf("images to recipe: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read images to recipe response: %w", err)
	}
	result := &RecipeResult{Raw: raw}
	// the response shape is not fixed, id and name are best effort
	_ = json.Unmarshal(raw, result)
	return result, nil
}

// FetchRecipes returns the user's saved recipes.
func (c *Client) FetchRecipes(ctx context.Context) ([]Recipe, error) {
	var recipes []Recipe
	if err := c.getJSON(ctx, "/recipes", &recipes); err != nil {
		return nil, fmt.Errorf("fetch recipes: %w", err)
	}
	c.log.Debug("fetched recipes", "count", len(recipes))
	return recipes, nil
}

// FetchVideoInfo looks up title and thumbnail of a video.
func (c *Client) FetchVideoInfo(ctx context.Context, videoID string) (*VideoInfo, error) {
	var info VideoInfo
	if err := c.getJSON(ctx, "/recipes/from-video?video_id="+url.QueryEscape(videoID), &info); err != nil {
		return nil, fmt.Errorf("fetch video info %s: %w", videoID, err)
	}
	return &info, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)

	c.log.Debug("request", "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Warn("error response", "method", method, "path", path, "status", resp.StatusCode)
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}
	return resp, nil
}

func buildImageForm(images []string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for i, ref := range images {
		path := strings.TrimPrefix(ref, "file://")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("read image %d: %w", i, err)
		}

		name := filepath.Base(path)
		if name == "." || name == string(filepath.Separator) {
			name = fmt.Sprintf("photo_%d.jpg", i)
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, name))
		h.Set("Content-Type", imageContentType(name))
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func imageContentType(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "":
		return "image/jpeg"
	case "jpg":
		return "image/jpeg"
	}
	return "image/" + ext
}
