// Command dummy-search imitates the web search API for local runs: point
// search.base_url at http://localhost:3001 and use any non-empty api key.
package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	r := gin.Default()

	r.GET("/search", func(c *gin.Context) {
		if c.GetHeader("X-API-Key") == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing api key"})
			return
		}

		query := c.Query("query")
		published := time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC3339)
		c.JSON(http.StatusOK, gin.H{
			"hits": []gin.H{
				{
					"title":        "Naval movements reported near " + query,
					"url":          "https://example.org/news/1",
					"snippet":      "Open-source trackers report increased activity.",
					"published_at": published,
				},
				{
					"title":       "",
					"link":        "https://example.org/news/2",
					"description": "Regional officials declined to comment.",
					"date":        published,
				},
			},
		})
	})

	log.Println("Dummy search API starting on :3001")
	if err := r.Run(":3001"); err != nil {
		log.Fatal(err)
	}
}
