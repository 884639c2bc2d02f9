package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// --- Cluster Handlers ---

// listNodes handles GET /api/v1/cluster/nodes
func (s *Server) listNodes(c *gin.Context) {
	nodes, err := s.coordinator.GetActiveNodes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get nodes: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nodes": nodes,
		"count": len(nodes),
	})
}

// getLeader handles GET /api/v1/cluster/leader
func (s *Server) getLeader(c *gin.Context) {
	// Note: We'd need to store the election instance or query etcd directly
	// For now, return a placeholder
	c.JSON(http.StatusOK, gin.H{
		"leader": "sweep-leader",
		"note":   "Full implementation requires election instance access",
	})
}
