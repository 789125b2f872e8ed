package http

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"soundcast/internal/app"
	"soundcast/internal/auth"
	"soundcast/internal/catalog"
	"soundcast/internal/library"
	"soundcast/internal/netinfo"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// API holds the services the request handlers work against. Handlers
// classify every request independently; HTTP privilege is stateless.
type API struct {
	Gate    *auth.Gate
	Catalog *catalog.Service
	Library *library.Library
	Coord   *app.Coordinator
	Port    int

	deviceMu sync.Mutex
	deviceID string
}

func NewAPI(gate *auth.Gate, cat *catalog.Service, lib *library.Library, coord *app.Coordinator, port int) *API {
	return &API{Gate: gate, Catalog: cat, Library: lib, Coord: coord, Port: port}
}

// requireViewer gates catalog viewing and play/stop: host or a remote
// with a valid token.
func (a *API) requireViewer(c *gin.Context) bool {
	if a.Gate.Classify(c.Request) == auth.RemoteUnauthenticated {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "requireAuth": true})
		return false
	}
	return true
}

// requireHost gates catalog management. Remote devices are categorically
// denied, valid token or not.
func (a *API) requireHost(c *gin.Context) bool {
	if a.Gate.Classify(c.Request) != auth.Host {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only available from the host device"})
		return false
	}
	return true
}

func (a *API) Login(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password required"})
		return
	}
	token, err := a.Gate.IssueToken(req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

func (a *API) Check(c *gin.Context) {
	switch a.Gate.Classify(c.Request) {
	case auth.Host:
		c.JSON(http.StatusOK, gin.H{"authenticated": true, "isHost": true})
	case auth.RemoteAuthenticated:
		c.JSON(http.StatusOK, gin.H{"authenticated": true, "isHost": false})
	default:
		c.JSON(http.StatusOK, gin.H{"authenticated": false, "isHost": false})
	}
}

func (a *API) Sounds(c *gin.Context) {
	if !a.requireViewer(c) {
		return
	}
	c.JSON(http.StatusOK, a.Catalog.List())
}

func (a *API) Audio(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sound not found"})
		return
	}
	snd, ok := a.Catalog.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sound not found"})
		return
	}
	if !a.Library.Exists(snd.File) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sound file not found", "file": snd.File})
		return
	}
	path, _ := a.Library.Path(snd.File)
	c.File(path)
}

func (a *API) Play(c *gin.Context) {
	if !a.requireViewer(c) {
		return
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sound not found"})
		return
	}
	snd, err := a.Coord.Play(id)
	switch {
	case errors.Is(err, app.ErrSoundNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Sound not found"})
	case errors.Is(err, app.ErrFileMissing):
		c.JSON(http.StatusNotFound, gin.H{"error": "Sound file not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "sound": snd.Name})
	}
}

func (a *API) Stop(c *gin.Context) {
	if !a.requireViewer(c) {
		return
	}
	a.Coord.Stop()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *API) Upload(c *gin.Context) {
	if !a.requireHost(c) {
		return
	}
	fh, err := c.FormFile("soundFile")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	src, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer src.Close()

	stored, err := a.Library.Save(fh.Filename, fh.Size, src)
	switch {
	case errors.Is(err, library.ErrNotAudioFile), errors.Is(err, library.ErrFileTooLarge), errors.Is(err, library.ErrBadFilename):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	name := c.PostForm("soundName")
	if name == "" {
		name = library.BaseName(stored)
	}
	snd, err := a.Catalog.Add(name, stored)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save catalog"})
		return
	}
	a.Coord.CatalogChanged()
	log.Info().Str("module", "api").Str("name", snd.Name).Str("file", stored).Msg("sound uploaded")
	c.JSON(http.StatusOK, gin.H{"success": true, "sound": snd})
}

func (a *API) Files(c *gin.Context) {
	if !a.requireHost(c) {
		return
	}
	files, err := a.Library.Unused(a.Catalog.Files())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read sounds directory"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (a *API) AddExisting(c *gin.Context) {
	if !a.requireHost(c) {
		return
	}
	var req struct {
		Filename  string `json:"filename"`
		SoundName string `json:"soundName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Filename required"})
		return
	}
	if !a.Library.Exists(req.Filename) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	name := req.SoundName
	if name == "" {
		name = library.BaseName(req.Filename)
	}
	snd, err := a.Catalog.Add(name, req.Filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save catalog"})
		return
	}
	a.Coord.CatalogChanged()
	c.JSON(http.StatusOK, gin.H{"success": true, "sound": snd})
}

func (a *API) Rename(c *gin.Context) {
	if !a.requireHost(c) {
		return
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sound not found"})
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name required"})
		return
	}
	snd, err := a.Catalog.Rename(id, req.Name)
	switch {
	case errors.Is(err, catalog.ErrSoundNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Sound not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save catalog"})
		return
	}
	a.Coord.CatalogChanged()
	c.JSON(http.StatusOK, gin.H{"success": true, "sound": snd})
}

func (a *API) Delete(c *gin.Context) {
	if !a.requireHost(c) {
		return
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sound not found"})
		return
	}
	removed, err := a.Catalog.Remove(id)
	switch {
	case errors.Is(err, catalog.ErrSoundNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Sound not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save catalog"})
		return
	}
	a.Coord.CatalogChanged()
	c.JSON(http.StatusOK, gin.H{"success": true, "removed": removed})
}

// Devices reports the stored output device preference. Enumeration of
// actual devices happens in the browser; the server only remembers the
// host's choice.
func (a *API) Devices(c *gin.Context) {
	a.deviceMu.Lock()
	current := a.deviceID
	a.deviceMu.Unlock()
	c.JSON(http.StatusOK, gin.H{"currentDevice": current, "devices": []string{}})
}

func (a *API) SetDevice(c *gin.Context) {
	var req struct {
		DeviceID string `json:"deviceId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.DeviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Device ID required"})
		return
	}
	a.deviceMu.Lock()
	a.deviceID = req.DeviceID
	a.deviceMu.Unlock()
	log.Info().Str("module", "api").Str("device", req.DeviceID).Msg("audio device preference set")
	c.JSON(http.StatusOK, gin.H{"success": true, "deviceId": req.DeviceID})
}

func (a *API) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"port":      a.Port,
		"addresses": netinfo.Addresses(),
	})
}
