package api

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"risuem.me/pkg/canvas"
	"risuem.me/pkg/utils"
)

// exportPNG renders the flattened composite of a room. Grid lines and
// attribution badges are off unless requested with the grid=1 and
// attribution=1 query flags. Rendering is CPU-bound, so it runs on the
// worker pool to cap concurrent rasterization.
func (api *API) exportPNG(c echo.Context) error {
	snap, err := api.hub.Snapshot(c.Param("roomID"))
	if err != nil {
		log.Info(err)
		return echo.NewHTTPError(http.StatusNotFound)
	}

	size := utils.ParseInt(c.QueryParam("size"), api.config.CanvasSize, 64, 2048)
	opts := canvas.RenderOptions{
		Size:            size,
		ShowGrid:        c.QueryParam("grid") == "1",
		ShowAttribution: c.QueryParam("attribution") == "1",
		Face:            api.face,
	}

	var buf bytes.Buffer
	var renderErr error
	api.workerPool.SubmitWait(func() {
		dc := canvas.Render(snap, float64(api.config.CanvasSize), opts)
		renderErr = dc.EncodePNG(&buf)
	})
	if renderErr != nil {
		log.Error(renderErr)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

// exportProject returns the full project snapshot document; it
// round-trips through an import_project message unchanged.
func (api *API) exportProject(c echo.Context) error {
	snap, err := api.hub.Snapshot(c.Param("roomID"))
	if err != nil {
		log.Info(err)
		return echo.NewHTTPError(http.StatusNotFound)
	}
	return c.JSON(http.StatusOK, snap)
}
