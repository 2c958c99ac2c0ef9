package handler

import (
	"github.com/gofiber/fiber/v2"
)

const indexPage = `<!DOCTYPE html>
<html>
<head><title>Doorwatch</title></head>
<body>
  <h1>Doorwatch</h1>
  <img src="/stream" alt="live stream" />
  <ul>
    <li><a href="/capture">Capture a frame</a></li>
    <li><a href="/recognition">Recognition view</a></li>
    <li><a href="/faces">Enrolled faces</a></li>
  </ul>
  <form action="/enroll" method="get">
    <input type="text" name="name" placeholder="Name" maxlength="31" />
    <button type="submit">Enroll from camera</button>
  </form>
</body>
</html>`

const recognitionPage = `<!DOCTYPE html>
<html>
<head><title>Doorwatch - Recognition</title></head>
<body>
  <h1>Recognition</h1>
  <img src="/recognition_stream" alt="recognition stream" />
  <p>Current identity: <span id="name">Unknown</span></p>
  <script>
    setInterval(function () {
      fetch('/recognized_name')
        .then(function (r) { return r.json(); })
        .then(function (d) { document.getElementById('name').textContent = d.name; });
    }, 1000);
  </script>
</body>
</html>`

// PagesHandler serves the built-in appliance pages.
type PagesHandler struct{}

func NewPagesHandler() *PagesHandler {
	return &PagesHandler{}
}

func (h *PagesHandler) Index(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(indexPage)
}

func (h *PagesHandler) Recognition(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(recognitionPage)
}
