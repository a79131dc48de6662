package http

import "github.com/gin-gonic/gin"

// Register registers the processes and jobs routes.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/processes", h.ListProcesses)
	rg.GET("/processes/:id", h.DescribeProcess)
	rg.POST("/processes/:id/execution", h.Execute)

	rg.GET("/jobs", h.ListJobs)
	rg.GET("/jobs/:id", h.GetJob)
	rg.GET("/jobs/:id/results", h.GetResults)
}

// RegisterAdmin registers routes that mutate or expose accounting data;
// the caller typically guards the group with the API key middleware.
func (h *Handler) RegisterAdmin(rg *gin.RouterGroup) {
	rg.DELETE("/jobs/:id", h.DismissJob)
	rg.GET("/processes/:id/stats", h.ProcessStats)
}
