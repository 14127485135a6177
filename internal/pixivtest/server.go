// Package pixivtest provides an in-memory fake of the pixiv AJAX API and image
// servers for tests.
package pixivtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Bookmark is one entry of a fake bookmark list
type Bookmark struct {
	ID     uint64
	Masked bool
}

type work struct {
	id         uint64
	title      string
	userID     uint64
	illustType int
	files      []string
	errMessage string
}

type series struct {
	title    string
	workIDs  []uint64
	pageSize int
}

type novel struct {
	title   string
	content string
}

// Server is a fake pixiv backend. All setters are safe to call while requests
// are in flight.
type Server struct {
	server *httptest.Server

	mu        sync.RWMutex
	works     map[uint64]*work
	series    map[uint64]*series
	profiles  map[uint64][2][]uint64
	bookmarks map[string][]Bookmark
	tagged    map[string][]uint64
	novels    map[uint64]novel
	files     map[string][]byte
	failures  map[string]int
	delays    map[string]time.Duration
	requests  []string
	cookies   []string

	requestCount int32
	inFlight     int32
	peakInFlight int32
}

// NewServer starts a fake pixiv server. Call Close when done.
func NewServer() *Server {
	s := &Server{
		works:     make(map[uint64]*work),
		series:    make(map[uint64]*series),
		profiles:  make(map[uint64][2][]uint64),
		bookmarks: make(map[string][]Bookmark),
		tagged:    make(map[string][]uint64),
		novels:    make(map[uint64]novel),
		files:     make(map[string][]byte),
		failures:  make(map[string]int),
		delays:    make(map[string]time.Duration),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ajax/illust/{id}", s.handleIllust)
	mux.HandleFunc("GET /ajax/illust/{id}/pages", s.handlePages)
	mux.HandleFunc("GET /ajax/illust/{id}/ugoira_meta", s.handleUgoira)
	mux.HandleFunc("GET /ajax/user/{uid}/profile/all", s.handleProfile)
	mux.HandleFunc("GET /ajax/user/{uid}/illusts/bookmarks", s.handleBookmarks)
	mux.HandleFunc("GET /ajax/user/{uid}/illustmanga/tag", s.handleTagged)
	mux.HandleFunc("GET /ajax/series/{sid}", s.handleSeries)
	mux.HandleFunc("GET /ajax/novel/{id}", s.handleNovel)
	mux.HandleFunc("GET /img/{file}", s.handleFile)

	s.server = httptest.NewServer(s.track(mux))
	return s
}

// URL returns the base URL of the fake server
func (s *Server) URL() string {
	return s.server.URL
}

// Close shuts down the server
func (s *Server) Close() {
	s.server.Close()
}

// FileURL returns the download URL of a file served under /img/
func (s *Server) FileURL(name string) string {
	return s.server.URL + "/img/" + name
}

// FileContent returns the bytes served for name
func FileContent(name string) []byte {
	return []byte("pixivtest:" + name)
}

// AddWork registers an illustration with the given number of pages. Page
// files are named <id>_p<n>.png.
func (s *Server) AddWork(id uint64, pages int) {
	files := make([]string, pages)
	for i := range files {
		files[i] = fmt.Sprintf("%d_p%d.png", id, i)
	}
	s.addWork(&work{id: id, title: fmt.Sprintf("work %d", id), userID: 1, files: files})
}

// AddUgoira registers an animated work whose frames are served as one zip
func (s *Server) AddUgoira(id uint64) {
	s.addWork(&work{
		id:         id,
		title:      fmt.Sprintf("ugoira %d", id),
		userID:     1,
		illustType: 2,
		files:      []string{fmt.Sprintf("%d_ugoira0.jpg", id)},
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	name := fmt.Sprintf("%d_ugoira1920x1080.zip", id)
	s.files[name] = FileContent(name)
}

func (s *Server) addWork(w *work) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.works[w.id] = w
	for _, name := range w.files {
		s.files[name] = FileContent(name)
	}
}

// SetWorkError makes the work endpoints of id answer with an application error
func (s *Server) SetWorkError(id uint64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.works[id] = &work{id: id, errMessage: message}
}

// AddSeries registers a series served pageSize entries at a time
func (s *Server) AddSeries(id uint64, title string, pageSize int, workIDs ...uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[id] = &series{title: title, workIDs: workIDs, pageSize: pageSize}
}

// SetProfile sets the illustration and manga ids of a user
func (s *Server) SetProfile(userID uint64, illusts, manga []uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = [2][]uint64{illusts, manga}
}

// SetBookmarks sets a user's bookmarks for rest "show" or "hide"
func (s *Server) SetBookmarks(userID uint64, rest string, bookmarks []Bookmark) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookmarks[fmt.Sprintf("%d/%s", userID, rest)] = bookmarks
}

// SetTagged sets the ids returned for a user's tag listing, newest first
func (s *Server) SetTagged(userID uint64, tag string, ids []uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tagged[fmt.Sprintf("%d/%s", userID, tag)] = ids
}

// AddNovel registers a novel
func (s *Server) AddNovel(id uint64, title, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.novels[id] = novel{title: title, content: content}
}

// FailFile makes the next n downloads of name answer 500
func (s *Server) FailFile(name string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[name] = n
}

// SetDelay delays every response whose path starts with prefix
func (s *Server) SetDelay(prefix string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[prefix] = d
}

// Requests returns the request URIs (path and query) whose path starts with prefix
func (s *Server) Requests(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, r := range s.requests {
		if strings.HasPrefix(r, prefix) {
			out = append(out, r)
		}
	}
	return out
}

// Cookies returns the Cookie header of every request received
func (s *Server) Cookies() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.cookies...)
}

// RequestCount returns the total number of requests
func (s *Server) RequestCount() int {
	return int(atomic.LoadInt32(&s.requestCount))
}

// PeakInFlight returns the highest number of requests served concurrently
func (s *Server) PeakInFlight() int {
	return int(atomic.LoadInt32(&s.peakInFlight))
}

func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.requestCount, 1)
		n := atomic.AddInt32(&s.inFlight, 1)
		defer atomic.AddInt32(&s.inFlight, -1)
		for {
			peak := atomic.LoadInt32(&s.peakInFlight)
			if n <= peak || atomic.CompareAndSwapInt32(&s.peakInFlight, peak, n) {
				break
			}
		}

		s.mu.Lock()
		s.requests = append(s.requests, r.URL.RequestURI())
		s.cookies = append(s.cookies, r.Header.Get("Cookie"))
		var delay time.Duration
		for prefix, d := range s.delays {
			if strings.HasPrefix(r.URL.Path, prefix) && d > delay {
				delay = d
			}
		}
		s.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		next.ServeHTTP(w, r)
	})
}

func writeBody(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   false,
		"message": "",
		"body":    body,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"message": message,
		"body":    []interface{}{},
	})
}

func pathID(r *http.Request, name string) uint64 {
	id, _ := strconv.ParseUint(r.PathValue(name), 10, 64)
	return id
}

func queryInt(r *http.Request, name string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(name))
	return v
}

func (s *Server) lookupWork(w http.ResponseWriter, r *http.Request) (*work, bool) {
	s.mu.RLock()
	wk, ok := s.works[pathID(r, "id")]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Work has been deleted or the ID does not exist.")
		return nil, false
	}
	if wk.errMessage != "" {
		writeError(w, http.StatusBadRequest, wk.errMessage)
		return nil, false
	}
	return wk, true
}

func (s *Server) handleIllust(w http.ResponseWriter, r *http.Request) {
	wk, ok := s.lookupWork(w, r)
	if !ok {
		return
	}
	writeBody(w, map[string]interface{}{
		"illustId":      strconv.FormatUint(wk.id, 10),
		"illustTitle":   wk.title,
		"illustComment": "",
		"illustType":    wk.illustType,
		"userId":        strconv.FormatUint(wk.userID, 10),
		"userName":      "artist",
		"pageCount":     len(wk.files),
		"createDate":    "2024-01-02T03:04:05+00:00",
		"uploadDate":    "2024-01-02T03:04:05+00:00",
		"tags": map[string]interface{}{
			"tags": []map[string]interface{}{{"tag": "オリジナル", "translation": map[string]string{"en": "original"}}},
		},
	})
}

func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	wk, ok := s.lookupWork(w, r)
	if !ok {
		return
	}
	pages := make([]map[string]interface{}, 0, len(wk.files))
	for _, name := range wk.files {
		pages = append(pages, map[string]interface{}{
			"urls": map[string]string{
				"thumb_mini": s.FileURL("thumb_" + name),
				"small":      s.FileURL("small_" + name),
				"regular":    s.FileURL("regular_" + name),
				"original":   s.FileURL(name),
			},
			"width":  1200,
			"height": 800,
		})
	}
	writeBody(w, pages)
}

func (s *Server) handleUgoira(w http.ResponseWriter, r *http.Request) {
	wk, ok := s.lookupWork(w, r)
	if !ok {
		return
	}
	if wk.illustType != 2 {
		writeError(w, http.StatusBadRequest, "Not an ugoira")
		return
	}
	writeBody(w, map[string]interface{}{
		"src":         s.FileURL(fmt.Sprintf("%d_ugoira600x600.zip", wk.id)),
		"originalSrc": s.FileURL(fmt.Sprintf("%d_ugoira1920x1080.zip", wk.id)),
		"mime_type":   "image/jpeg",
		"frames": []map[string]interface{}{
			{"file": "000000.jpg", "delay": 100},
			{"file": "000001.jpg", "delay": 100},
		},
	})
}

func idMap(ids []uint64) interface{} {
	if len(ids) == 0 {
		return []interface{}{}
	}
	m := make(map[string]interface{}, len(ids))
	for _, id := range ids {
		m[strconv.FormatUint(id, 10)] = nil
	}
	return m
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	profile, ok := s.profiles[pathID(r, "uid")]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "User has left pixiv or the user ID does not exist.")
		return
	}
	writeBody(w, map[string]interface{}{
		"illusts": idMap(profile[0]),
		"manga":   idMap(profile[1]),
		"novels":  []interface{}{},
	})
}

func window(total, offset, limit int) (int, int) {
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return offset, end
}

func (s *Server) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	key := fmt.Sprintf("%d/%s", pathID(r, "uid"), r.URL.Query().Get("rest"))
	s.mu.RLock()
	all := s.bookmarks[key]
	s.mu.RUnlock()

	start, end := window(len(all), queryInt(r, "offset"), queryInt(r, "limit"))
	works := make([]map[string]interface{}, 0, end-start)
	for i, b := range all[start:end] {
		entry := map[string]interface{}{"isMasked": b.Masked}
		// the API mixes string and numeric ids
		if i%2 == 0 {
			entry["id"] = strconv.FormatUint(b.ID, 10)
		} else {
			entry["id"] = b.ID
		}
		works = append(works, entry)
	}
	writeBody(w, map[string]interface{}{"works": works, "total": len(all)})
}

func (s *Server) handleTagged(w http.ResponseWriter, r *http.Request) {
	key := fmt.Sprintf("%d/%s", pathID(r, "uid"), r.URL.Query().Get("tag"))
	s.mu.RLock()
	all := s.tagged[key]
	s.mu.RUnlock()

	start, end := window(len(all), queryInt(r, "offset"), queryInt(r, "limit"))
	works := make([]map[string]interface{}, 0, end-start)
	for _, id := range all[start:end] {
		works = append(works, map[string]interface{}{"id": strconv.FormatUint(id, 10), "isMasked": false})
	}
	writeBody(w, map[string]interface{}{"works": works, "total": len(all)})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	sr, ok := s.series[pathID(r, "sid")]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Series not found")
		return
	}

	page := queryInt(r, "p")
	if page < 1 {
		page = 1
	}
	start, end := window(len(sr.workIDs), (page-1)*sr.pageSize, sr.pageSize)
	entries := make([]map[string]interface{}, 0, end-start)
	for i, id := range sr.workIDs[start:end] {
		entries = append(entries, map[string]interface{}{
			"workId": strconv.FormatUint(id, 10),
			"order":  start + i + 1,
		})
	}
	writeBody(w, map[string]interface{}{
		"page": map[string]interface{}{
			"series": entries,
			"total":  len(sr.workIDs),
		},
		"illustSeries": []map[string]interface{}{
			{"id": r.PathValue("sid"), "title": sr.title},
		},
	})
}

func (s *Server) handleNovel(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	s.mu.RLock()
	n, ok := s.novels[id]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Novel not found")
		return
	}
	writeBody(w, map[string]interface{}{
		"id":                 strconv.FormatUint(id, 10),
		"title":              n.title,
		"content":            n.content,
		"description":        "",
		"createDate":         "2024-01-02T03:04:05+00:00",
		"uploadDate":         "2024-01-02T03:04:05+00:00",
		"textEmbeddedImages": nil,
	})
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")

	s.mu.Lock()
	data, ok := s.files[name]
	fail := s.failures[name] > 0
	if fail {
		s.failures[name]--
	}
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if fail {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if r.Header.Get("Referer") == "" {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

// SortedIDs returns ids sorted newest first, matching the order listings use
func SortedIDs(ids ...uint64) []uint64 {
	out := append([]uint64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}
