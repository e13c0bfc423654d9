package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/school"
)

type schoolApi struct {
	svc      *school.Service
	validate *validator.Validate
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := schoolApi{
		svc:      opts.SchoolSvc,
		validate: opts.Validate,
	}

	sg := g.Group("/schools")

	// un-authed endpoints
	sg.POST("/login", api.login)
	sg.POST("/password-reset", api.requestPasswordReset)
	sg.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag := sg.Group("", jwt)
	ag.POST("/register", api.register)
	ag.POST("/password-change", api.changePassword)
	ag.GET("", api.query)
	ag.GET("/cities", api.cities)
	ag.GET("/names", api.names)
	ag.GET("/find", api.find)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
}

func (api *schoolApi) register(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data school.NewSchool
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	photo, err := formPhoto(ctx)
	if err != nil {
		return err
	}

	sch, err := api.svc.Register(ctx.Request().Context(), p, data, photo)
	if err != nil {
		return err
	}

	token, err := GenerateToken(GetClaims(sch.Principal()))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, LoginResponse{AccessToken: token, User: sch, Message: msgSchoolCreated})
}

func (api *schoolApi) login(ctx echo.Context) error {
	var data school.Login
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Login")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sch, err := api.svc.Authenticate(ctx.Request().Context(), data)
	if err != nil {
		if core.IsKind(err, core.KindNotFound) {
			return school.ErrBadCredentials
		}
		return err
	}

	token, err := GenerateToken(GetClaims(sch.Principal()))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{AccessToken: token, User: sch, Message: msgSchoolLoggedIn})
}

func (api *schoolApi) requestPasswordReset(ctx echo.Context) error {
	var data school.ForgottenPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ForgottenPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Message: msgMailSent})
}

func (api *schoolApi) confirmPasswordReset(ctx echo.Context) error {
	var data school.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Message: msgPwdChanged})
}

func (api *schoolApi) changePassword(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data school.ResetPassword
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if err = api.svc.ChangePassword(ctx.Request().Context(), p, data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Message: msgPwdChanged})
}

func (api *schoolApi) query(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var params core.ListParams
	if err = ctx.Bind(&params); err != nil {
		return errors.Wrap(err, "binding to ListParams")
	}

	schools, pageInfo, err := api.svc.Query(ctx.Request().Context(), p, params)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newListResponse(schools, pageInfo, msgFindAllSchools))
}

func (api *schoolApi) cities(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	cities, err := api.svc.Cities(ctx.Request().Context(), p)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"cities": cities})
}

func (api *schoolApi) names(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	names, err := api.svc.Names(ctx.Request().Context(), p)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"schools": names})
}

func (api *schoolApi) find(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	schools, err := api.svc.FindByName(ctx.Request().Context(), p, ctx.QueryParam("name"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"schools": schools, "message": msgFoundOneSchool})
}

func (api *schoolApi) retrieve(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	sch, err := api.svc.GetByID(ctx.Request().Context(), p, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"school": sch, "message": msgFoundOneSchool})
}

func (api *schoolApi) update(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data school.UpdateSchool
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchool")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	photo, err := formPhoto(ctx)
	if err != nil {
		return err
	}

	sch, err := api.svc.Update(ctx.Request().Context(), p, ctx.Param("id"), data, photo)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"school": sch, "message": msgUpdatedSchool})
}

func (api *schoolApi) destroy(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), p, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Message: msgSchoolDeleted})
}
