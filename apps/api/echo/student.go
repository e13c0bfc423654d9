package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/student"
)

type studentApi struct {
	svc      *student.Service
	validate *validator.Validate
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := studentApi{
		svc:      opts.StudentSvc,
		validate: opts.Validate,
	}

	sg := g.Group("/students", jwt)
	sg.POST("", api.create)
	sg.GET("", api.query)
	sg.GET("/find", api.find)
	sg.GET("/standards", api.standards)
	sg.GET("/count", api.standardCounts)
	sg.GET("/count/total", api.total)
	sg.PUT("/:id", api.update)
	sg.PATCH("/:id/status", api.setStatus)
	sg.DELETE("/:id", api.destroy)
}

func (api *studentApi) create(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data student.NewStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if data.School == "" {
		data.School = ctx.QueryParam("school")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	photo, err := formPhoto(ctx)
	if err != nil {
		return err
	}

	st, err := api.svc.Create(ctx.Request().Context(), p, data, photo)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"student": st, "message": msgStudentCreated})
}

func (api *studentApi) query(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var params core.ListParams
	if err = ctx.Bind(&params); err != nil {
		return errors.Wrap(err, "binding to ListParams")
	}

	students, pageInfo, err := api.svc.Query(ctx.Request().Context(), p, params)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newListResponse(students, pageInfo, msgFindAllStudents))
}

// find resolves one student by ?id= or ?name= keyword.
func (api *studentApi) find(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	key := ctx.QueryParam("id")
	if key == "" {
		key = ctx.QueryParam("name")
	}

	st, err := api.svc.FindOne(ctx.Request().Context(), p, key)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"student": st, "message": msgFoundOneStudent})
}

func (api *studentApi) standards(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	stds, err := api.svc.Standards(ctx.Request().Context(), p, ctx.QueryParam("school"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"standards": stds})
}

func (api *studentApi) standardCounts(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	counts, err := api.svc.StandardCounts(ctx.Request().Context(), p, ctx.QueryParam("school"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"counts": counts})
}

func (api *studentApi) total(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	total, err := api.svc.Total(ctx.Request().Context(), p)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"total": total})
}

func (api *studentApi) update(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data student.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	photo, err := formPhoto(ctx)
	if err != nil {
		return err
	}

	st, err := api.svc.Update(ctx.Request().Context(), p, ctx.Param("id"), data, photo)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"student": st, "message": msgUpdatedStudent})
}

func (api *studentApi) setStatus(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data student.SetStatus
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetStatus")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	st, err := api.svc.SetActiveStatus(ctx.Request().Context(), p, ctx.Param("id"), *data.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"student": st, "message": msgStatusChanged})
}

func (api *studentApi) destroy(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), p, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Message: msgStudentDeleted})
}
