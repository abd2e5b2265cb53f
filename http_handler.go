package main

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/9seconds/iplocation/cdn"
	"github.com/9seconds/iplocation/geolib"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/spf13/afero"
)

const (
	handlerTimeout = 60 * time.Second

	// a batch of 4096 IPv6 addresses fits comfortably
	maxRequestBodySize = 1024 * 1024

	cachePinned   = "public, max-age=31536000, immutable"
	cacheUnpinned = "no-cache"
)

var datasetNameRegexp = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type httpHandler struct {
	fs       afero.Fs
	db       *geolib.Database
	resolver *resolver
	cdnDir   string
}

type lookupPostRequest struct {
	IPs []string `json:"ips"`
}

func (h httpHandler) handleInfo(w http.ResponseWriter, req *http.Request) {
	layout := h.db.Layout()
	fields := []string{}

	for _, v := range layout.Fields() {
		fields = append(fields, v.String())
	}

	response := struct {
		Fields     []string `json:"fields"`
		Signature  string   `json:"signature"`
		IPv4Ranges int      `json:"ipv4_ranges"`
		IPv6Ranges int      `json:"ipv6_ranges"`
	}{
		Fields:     fields,
		Signature:  layout.Signature(),
		IPv4Ranges: h.db.Len(4),
		IPv6Ranges: h.db.Len(6),
	}

	writeJSON(w, http.StatusOK, response)
}

func (h httpHandler) handleStats(w http.ResponseWriter, req *http.Request) {
	response := struct {
		Stats *usageStats `json:"stats"`
	}{
		Stats: h.resolver.stats,
	}

	writeJSON(w, http.StatusOK, response)
}

func (h httpHandler) handleLookupSelf(w http.ResponseWriter, req *http.Request) {
	// RealIP middleware replaces remote address with a value of
	// X-Real-IP which has no port
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}

	h.lookup(w, host)
}

func (h httpHandler) handleLookupIP(w http.ResponseWriter, req *http.Request) {
	h.lookup(w, chi.URLParam(req, "ip"))
}

func (h httpHandler) lookup(w http.ResponseWriter, ip string) {
	resolved, err := h.resolver.Resolve(ip)

	switch {
	case errors.Is(err, geolib.ErrInvalidAddress):
		sendError(w, err, "Incorrect IP address", http.StatusBadRequest)

		return
	case err != nil:
		sendError(w, err, "Cannot resolve IP address", 0)

		return
	}

	response := struct {
		Result ResolveResult `json:"result"`
	}{
		Result: resolved,
	}

	writeJSON(w, http.StatusOK, response)
}

func (h httpHandler) handleLookupBatch(w http.ResponseWriter, req *http.Request) {
	if !strings.Contains(req.Header.Get("Content-Type"), "application/json") {
		sendError(w, nil, "Incorrect content type", http.StatusUnsupportedMediaType)

		return
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(req.Body, maxRequestBodySize+1))

	req.Body.Close()

	switch {
	case err != nil:
		sendError(w, err, "Cannot read request body", http.StatusBadRequest)

		return
	case len(bodyBytes) > maxRequestBodySize:
		sendError(w, nil, "Request body is too large", http.StatusRequestEntityTooLarge)

		return
	}

	parsedRequest := lookupPostRequest{}
	if err := json.Unmarshal(bodyBytes, &parsedRequest); err != nil {
		sendError(w, err, "Cannot parse request JSON", http.StatusBadRequest)

		return
	}

	if len(parsedRequest.IPs) == 0 {
		sendError(w, nil, "At least one IP address is required", http.StatusBadRequest)

		return
	}

	resolved, err := h.resolver.ResolveAll(req.Context(), parsedRequest.IPs)
	if err != nil {
		sendError(w, err, "Cannot resolve given IPs", 0)

		return
	}

	response := struct {
		Results []ResolveResult `json:"results"`
	}{
		Results: resolved,
	}

	writeJSON(w, http.StatusOK, response)
}

// handleCDN serves exported datasets. A dataset can be pinned to a
// version with <name>@<version>; pinned requests for a version which
// is not current any more are answered with 404.
func (h httpHandler) handleCDN(w http.ResponseWriter, req *http.Request) {
	name, pinned, _ := strings.Cut(chi.URLParam(req, "dataset"), "@")
	if h.cdnDir == "" || !datasetNameRegexp.MatchString(name) {
		sendError(w, nil, "Unknown dataset", http.StatusNotFound)

		return
	}

	dir := filepath.Join(h.cdnDir, name)

	content, err := afero.ReadFile(h.fs, filepath.Join(dir, cdn.VersionFileName))
	if err != nil {
		sendError(w, nil, "Unknown dataset", http.StatusNotFound)

		return
	}

	version := strings.TrimSpace(string(content))

	if pinned != "" && pinned != version {
		sendError(w, nil, "Dataset version is not available", http.StatusNotFound)

		return
	}

	w.Header().Set(cdn.DefaultVersionHeader, version)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Expose-Headers", cdn.DefaultVersionHeader)

	if pinned != "" {
		w.Header().Set("Cache-Control", cachePinned)
	} else {
		w.Header().Set("Cache-Control", cacheUnpinned)
	}

	fileReq := req.Clone(req.Context())
	fileReq.URL.Path = "/" + chi.URLParam(req, "*")
	fileReq.URL.RawPath = ""

	http.FileServer(afero.NewHttpFs(h.fs).Dir(dir)).ServeHTTP(w, fileReq)
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	encodeJSON(w, data) // nolint: errcheck
}

func makeHTTPHandler(fs afero.Fs, db *geolib.Database, res *resolver, conf *config) http.Handler {
	handler := httpHandler{
		fs:       fs,
		db:       db,
		resolver: res,
		cdnDir:   conf.Server.GetCDNDir(),
	}
	router := chi.NewRouter()

	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(handlerTimeout))
	router.Use(middleware.Recoverer)
	router.Use(middleware.RealIP)

	router.Get("/info", handler.handleInfo)
	router.Get("/stats", handler.handleStats)
	router.Get("/lookup", handler.handleLookupSelf)
	router.Post("/lookup", handler.handleLookupBatch)
	router.Get("/lookup/{ip}", handler.handleLookupIP)
	router.Get("/cdn/{dataset}/*", handler.handleCDN)

	return withBasicAuth(router, conf.Server.BasicAuth)
}
