package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/storyloom/atlas/internal/config"
	"github.com/storyloom/atlas/internal/core"
	"github.com/storyloom/atlas/internal/core/filter"
	"github.com/storyloom/atlas/internal/core/layout"
	"github.com/storyloom/atlas/internal/core/mentions"
	"github.com/storyloom/atlas/internal/core/model"
	"github.com/storyloom/atlas/internal/driver"
	"github.com/storyloom/atlas/internal/manuscript"
)

type Server struct {
	Graph    *core.WorldGraph
	Mentions *mentions.Resolver
	Chapters *manuscript.Store
	Port     string
}

func NewServer() *Server {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Could not load %s: %v. Using defaults", cfgPath, err)
		cfg = config.Default()
	}

	// Env vars win over the config file.
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("MEMGRAPH_URI"); v != "" {
		cfg.Memgraph.URI = v
	}
	if v := os.Getenv("MEMGRAPH_USER"); v != "" {
		cfg.Memgraph.User = v
	}
	if v := os.Getenv("MEMGRAPH_PASSWORD"); v != "" {
		cfg.Memgraph.Password = v
	}
	if v := os.Getenv("MANUSCRIPT_PATH"); v != "" {
		cfg.Manuscript.Path = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}

	var d driver.GraphDriver
	switch cfg.Storage.Backend {
	case "memgraph":
		mg, err := driver.NewMemgraphDriver(cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password)
		if err != nil {
			log.Fatalf("Failed to connect to Memgraph: %v", err)
		}
		if err := mg.BuildIndices(context.Background()); err != nil {
			log.Printf("Warning: failed to build indices: %v", err)
		}
		d = mg
	default:
		sq, err := driver.NewSQLiteDriver(cfg.Storage.Path)
		if err != nil {
			log.Fatalf("Failed to open graph database: %v", err)
		}
		d = sq
	}

	chapters, err := manuscript.Open(cfg.Manuscript.Path)
	if err != nil {
		log.Fatalf("Failed to open manuscript database: %v", err)
	}

	return &Server{
		Graph:    core.NewWorldGraph(d),
		Mentions: mentions.NewResolver(chapters),
		Chapters: chapters,
		Port:     cfg.Server.Port,
	}
}

// Run serves the API on the configured port.
func (s *Server) Run() error {
	r := s.SetupRouter()
	log.Printf("Starting server on port %s", s.Port)
	return r.Run(":" + s.Port)
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	r.POST("/projects/:projectID/load", s.LoadProject)
	r.GET("/projects/:projectID/graph", s.GetGraph)
	r.GET("/projects/:projectID/library", s.GetLibrary)

	r.POST("/entities", s.CreateEntity)
	r.PATCH("/entities/:id", s.UpdateEntity)
	r.DELETE("/entities/:id", s.DeleteEntity)
	r.PUT("/entities/:id/position", s.UpdatePosition)

	r.POST("/relations", s.CreateRelation)
	r.PATCH("/relations/:id", s.UpdateRelation)
	r.DELETE("/relations/:id", s.DeleteRelation)

	r.POST("/selection", s.Select)
	r.GET("/selection/mentions", s.SelectionMentions)

	r.PUT("/chapters/:id", s.UpsertChapter)

	return r
}

// queryConfirmer is the confirmation collaborator at the HTTP boundary: the
// client answers the destructive-action prompt by sending ?confirm=true.
type queryConfirmer struct {
	c *gin.Context
}

func (q queryConfirmer) Confirm(ctx context.Context, prompt string) bool {
	return q.c.Query("confirm") == "true"
}

func (s *Server) LoadProject(c *gin.Context) {
	if !s.Graph.LoadGraph(c.Request.Context(), c.Param("projectID")) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "loaded", "revision": s.Graph.Revision()})
}

func filterState(c *gin.Context) filter.State {
	state := filter.State{SearchQuery: c.Query("q")}
	if raw := c.Query("types"); raw != "" {
		state.EntityTypes = strings.Split(raw, ",")
	}
	if raw := c.Query("kinds"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			state.RelationKinds = append(state.RelationKinds, model.RelationKind(k))
		}
	}
	return state
}

// graphNode is an entity plus its resolved render position.
type graphNode struct {
	model.Entity
	X int `json:"x"`
	Y int `json:"y"`
}

func (s *Server) GetGraph(c *gin.Context) {
	projectID := c.Param("projectID")
	if !s.Graph.LoadGraph(c.Request.Context(), projectID) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project"})
		return
	}

	nodes, edges := s.Graph.Snapshot()

	// Positions resolve against the index in the full loaded list, so the
	// fallback layout is stable no matter what filter is active.
	positions := make(map[string][2]int, len(nodes))
	for i := range nodes {
		x, y := layout.Resolve(&nodes[i], i)
		positions[nodes[i].ID] = [2]int{x, y}
	}

	sub := filter.Apply(nodes, edges, filterState(c))
	out := make([]graphNode, 0, len(sub.Nodes))
	for _, n := range sub.Nodes {
		pos := positions[n.ID]
		out = append(out, graphNode{Entity: n, X: pos[0], Y: pos[1]})
	}

	selNode, selEdge := s.Graph.Selection()
	c.JSON(http.StatusOK, gin.H{
		"nodes":         out,
		"edges":         sub.Edges,
		"selected_node": selNode,
		"selected_edge": selEdge,
		"revision":      s.Graph.Revision(),
	})
}

func (s *Server) GetLibrary(c *gin.Context) {
	projectID := c.Param("projectID")
	if !s.Graph.LoadGraph(c.Request.Context(), projectID) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project"})
		return
	}

	state := filterState(c)
	nodes, edges := s.Graph.Snapshot()
	sub := filter.Apply(nodes, edges, state)
	c.JSON(http.StatusOK, gin.H{"groups": filter.Group(sub, state)})
}

func (s *Server) CreateEntity(c *gin.Context) {
	var in core.CreateEntityInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	created := s.Graph.CreateEntity(c.Request.Context(), in)
	if created == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to create entity"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) UpdateEntity(c *gin.Context) {
	var patch core.EntityPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	patch.ID = c.Param("id")

	if !s.Graph.UpdateEntity(c.Request.Context(), patch) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to update entity"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) DeleteEntity(c *gin.Context) {
	if !s.Graph.DeleteEntity(c.Request.Context(), c.Param("id"), queryConfirmer{c}) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to delete entity"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) UpdatePosition(c *gin.Context) {
	var in struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !s.Graph.UpdateEntityPosition(c.Request.Context(), c.Param("id"), in.X, in.Y) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to update position"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) CreateRelation(c *gin.Context) {
	var in core.CreateRelationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	created := s.Graph.CreateRelation(c.Request.Context(), in)
	if created == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to create relation"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) UpdateRelation(c *gin.Context) {
	var in struct {
		Relation model.RelationKind `json:"relation"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !s.Graph.UpdateRelation(c.Request.Context(), c.Param("id"), in.Relation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to update relation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) DeleteRelation(c *gin.Context) {
	if !s.Graph.DeleteRelation(c.Request.Context(), c.Param("id"), queryConfirmer{c}) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to delete relation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) Select(c *gin.Context) {
	var in struct {
		NodeID string `json:"node_id"`
		EdgeID string `json:"edge_id"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if in.EdgeID != "" {
		s.Graph.SelectEdge(in.EdgeID)
	} else {
		s.Graph.SelectNode(in.NodeID)
	}
	node, edge := s.Graph.Selection()
	c.JSON(http.StatusOK, gin.H{"selected_node": node, "selected_edge": edge})
}

func (s *Server) SelectionMentions(c *gin.Context) {
	entity, ok := s.Graph.SelectedEntity()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"mentions": []model.Mention{}})
		return
	}

	found, fresh := s.Mentions.Resolve(c.Request.Context(), entity, func(id string) bool {
		node, _ := s.Graph.Selection()
		return node == id
	})
	if !fresh {
		// Selection moved on while we were searching; report nothing.
		c.JSON(http.StatusOK, gin.H{"mentions": []model.Mention{}, "stale": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mentions": found})
}

func (s *Server) UpsertChapter(c *gin.Context) {
	var ch manuscript.Chapter
	if err := c.ShouldBindJSON(&ch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ch.ID = c.Param("id")

	if err := s.Chapters.UpsertChapter(c.Request.Context(), ch); err != nil {
		log.Printf("Failed to upsert chapter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store chapter"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stored"})
}
