package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"bookapi/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay free of business logic; everything goes through the service.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.BookService) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	// Health endpoints
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	// Table of contents
	app.Get("/summary", GetSummary(svc))
	app.Get("/summary.md", ExportSummary(svc))
	app.Put("/summary", ImportSummary(svc))

	// Chapters
	app.Get("/chapters", ListChapters(svc))
	app.Post("/chapters", CreateChapter(svc))
	app.Get("/chapters/:id", GetChapter(svc))
	app.Delete("/chapters/:id", DeleteChapter(svc))
	app.Post("/chapters/:id/content", AttachChapterContent(svc))
	app.Get("/chapters/:id/content", GetChapterContent(svc))
	app.Get("/chapters/:id/download", DownloadChapter(svc))
}
