package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gnarlyhq/gnarly/core/pdf"
)

type uploadApi struct {
	svc *pdf.Service
}

func registerUploadAPI(g *echo.Group, svc *pdf.Service) {
	api := uploadApi{svc: svc}

	ug := g.Group("/uploads")
	ug.POST("", api.create)
	ug.GET("", api.list)
	ug.GET("/user/:userId", api.listByUser)
	ug.DELETE("/:id", api.destroy)
}

// Handlers

func (api *uploadApi) create(ctx echo.Context) error {
	userID, err := strconv.Atoi(ctx.FormValue("userId"))
	if err != nil {
		return pdf.ErrInvalidOwner
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return pdf.ErrMissingFile
	}
	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = src.Close() }()

	desc, err := api.svc.Upload(ctx.Request().Context(), pdf.Upload{
		UserID:       userID,
		OriginalName: fh.Filename,
		MimeType:     fh.Header.Get(echo.HeaderContentType),
		SizeBytes:    fh.Size,
		Content:      src,
	})
	if err != nil {
		return errors.Wrap(err, "uploading pdf")
	}
	return ctx.JSON(http.StatusCreated, desc)
}

func (api *uploadApi) list(ctx echo.Context) error {
	descs, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying pdfs")
	}
	return ctx.JSON(http.StatusOK, descs)
}

func (api *uploadApi) listByUser(ctx echo.Context) error {
	userID, err := strconv.Atoi(ctx.Param("userId"))
	if err != nil {
		// an unparseable owner matches nothing
		return ctx.JSON(http.StatusOK, []pdf.Descriptor{})
	}
	descs, err := api.svc.QueryByOwner(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "querying pdfs by user")
	}
	return ctx.JSON(http.StatusOK, descs)
}

func (api *uploadApi) destroy(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return pdf.ErrNotFound
	}
	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting pdf")
	}
	return ctx.NoContent(http.StatusNoContent)
}
