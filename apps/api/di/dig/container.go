package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/rcarvalhopiaget/escutapiaget-sub000/apps/api/echo"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/ticket"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/user"
	emailsvc "github.com/rcarvalhopiaget/escutapiaget-sub000/services/email"
	logsvc "github.com/rcarvalhopiaget/escutapiaget-sub000/services/logger"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/services/validation"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/storage"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type repositories struct {
	dig.Out
	Question question.Repository
	Ticket   ticket.Repository
	User     user.Repository
	Storage  *storage.Repositories
}

type serverParams struct {
	dig.In
	Conf        *core.Config
	Logger      core.Logger
	Validate    *validator.Validate
	Translator  ut.Translator
	QuestionSvc *question.Service
	TicketSvc   *ticket.Service
	UserSvc     *user.Service
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) repositories {
	repos, err := storage.Open(context.Background(), conf, false)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up %s database: %v", conf.Database.Engine, err), err)
	}
	loggerParam.Logger.Info("database ready", map[string]interface{}{"engine": conf.Database.Engine})
	return repositories{
		Question: repos.Question,
		Ticket:   repos.Ticket,
		User:     repos.User,
		Storage:  repos,
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.Options{
		Conf:        p.Conf,
		Logger:      p.Logger,
		Validate:    p.Validate,
		Translator:  p.Translator,
		QuestionSvc: p.QuestionSvc,
		TicketSvc:   p.TicketSvc,
		UserSvc:     p.UserSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))
	must(c.Provide(validation.New))
	must(c.Provide(question.NewService))
	must(c.Provide(ticket.NewService))
	must(c.Provide(user.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
