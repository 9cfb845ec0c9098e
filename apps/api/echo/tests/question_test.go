package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/rcarvalhopiaget/escutapiaget-sub000/apps/api/echo"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/user"
	testutil "github.com/rcarvalhopiaget/escutapiaget-sub000/tests"
)

// seedBullyingForm creates a small bullying form:
// qid (identification) -> SIM shows qname; qwhere is a root; qwhere "Escola" -> qroom.
func seedBullyingForm(t *testing.T) map[string]question.Question {
	t.Helper()
	qs := []question.Question{
		{
			ID: "qid", Text: question.IdentificationPrompt, Type: question.TypeRadio, Category: "bullying", Order: 0,
			Options: []question.Option{{Text: question.AnswerYes}, {Text: question.AnswerNo}},
		},
		{ID: "qname", Text: "Nome completo", Type: question.TypeText, Category: "bullying", Order: 1},
		{
			ID: "qwhere", Text: "Onde aconteceu?", Type: question.TypeSelect, Category: "bullying", Order: 2,
			Options: []question.Option{{Text: "Escola", NextQuestionsIDs: []string{"qroom"}}, {Text: "Internet"}},
		},
		{ID: "qroom", Text: "Qual sala?", Type: question.TypeText, Category: "bullying", Order: 3},
		{ID: "qglobal", Text: "Observações", Type: question.TypeTextArea, Category: question.GlobalCategory, Order: 9},
		{ID: "qother", Text: "Assunto", Type: question.TypeText, Category: "reclamacao", Order: 0},
	}
	created := make(map[string]question.Question, len(qs))
	for _, q := range qs {
		created[q.ID] = testutil.CreateQuestion(t, questionRepo, q)
	}
	return created
}

func Test_questionApi_queryForm(t *testing.T) {
	setup(t)
	qs := seedBullyingForm(t)

	runHTTPTests(t, []httpTest{
		{
			name: "exact category, sorted by order", path: "/v1/questions?category=bullying",
			wantData: marshallList(t, qs["qid"], qs["qname"], qs["qwhere"], qs["qroom"]),
		},
		{name: "category is cleaned", path: "/v1/questions?category=%20BULLYING", wantData: marshallList(t, qs["qid"], qs["qname"], qs["qwhere"], qs["qroom"])},
		{name: "no category", path: "/v1/questions", wantData: marshallList(t)},
		{name: "unknown category", path: "/v1/questions?category=nope", wantData: marshallList(t)},
	})

	t.Run("never cached", func(t *testing.T) {
		rec := serve(newRequest(http.MethodGet, "/v1/questions?category=bullying"))
		assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
	})
}

func Test_questionApi_resolve(t *testing.T) {
	setup(t)
	qs := seedBullyingForm(t)

	resolve := func(answers question.Answers) []byte {
		return marshallObj(t, echoapi.ResolveRequest{Category: "bullying", Answers: answers})
	}
	active := func(ids ...string) []byte {
		set := question.ActiveSet{Questions: []question.Question{}}
		id := qs["qid"]
		set.Identification = &id
		for _, i := range ids {
			set.Questions = append(set.Questions, qs[i])
		}
		return marshallObj(t, set)
	}

	runHTTPTests(t, []httpTest{
		{name: "roots", method: http.MethodPost, path: "/v1/questions/active", body: resolve(nil), wantData: active("qname", "qwhere")},
		{
			name: "skip activated", method: http.MethodPost, path: "/v1/questions/active",
			body: resolve(question.Answers{"qwhere": "Escola"}), wantData: active("qname", "qwhere", "qroom"),
		},
		{
			name: "anonymous hides identity questions", method: http.MethodPost, path: "/v1/questions/active",
			body: resolve(question.Answers{"qid": question.AnswerNo, "qwhere": "Internet"}), wantData: active("qwhere"),
		},
	})
}

func Test_questionApi_admin(t *testing.T) {
	setup(t)
	qs := seedBullyingForm(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin01", "admin@piaget.br", "", []string{user.RoleAdmin}, true)
	staff := testutil.CreateUser(t, usrRepo, "Ana Souza", "anasouza", "ana@piaget.br", "", []string{user.RoleStaff}, true)
	adminToken := getToken(t, admin)

	runHTTPTests(t, []httpTest{
		{name: "Auth required", path: "/v1/admin/questions", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "Admin required", path: "/v1/admin/questions", token: getToken(t, staff), wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden)},
		{
			name: "category plus global", path: "/v1/admin/questions?category=bullying", token: adminToken,
			wantData: marshallList(t, qs["qglobal"], qs["qid"], qs["qname"], qs["qwhere"], qs["qroom"]),
		},
		{name: "retrieve", path: "/v1/admin/questions/qroom", token: adminToken, wantData: marshallObj(t, qs["qroom"])},
		{name: "retrieve unknown", path: "/v1/admin/questions/nope", token: adminToken, wantCode: http.StatusNotFound, wantData: marshallObj(t, errNotFound)},
		{
			name: "choice without options", method: http.MethodPost, path: "/v1/admin/questions", token: adminToken,
			body:     marshallObj(t, question.NewQuestion{Text: "Quando?", Type: question.TypeRadio, Category: "bullying"}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"options": "choice questions need at least 2 options"}),
		},
		{
			name: "invalid type", method: http.MethodPost, path: "/v1/admin/questions", token: adminToken,
			body:     marshallObj(t, question.NewQuestion{Text: "Quando?", Type: "SLIDER", Category: "bullying"}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"type": "invalid question type"}),
		},
	})

	t.Run("create, update, delete", func(t *testing.T) {
		nq := question.NewQuestion{
			Text: "Quando?", Type: question.TypeDate, Category: "Bullying", Order: 4,
		}
		rec := serve(newAuthRequest(http.MethodPost, "/v1/admin/questions", adminToken, marshallObj(t, nq)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var created question.Question
		decode(t, rec, &created)
		assert.Equal(t, "bullying", created.Category)

		// link it from qwhere "Internet"
		upd := question.NewQuestion{
			Text: "Onde aconteceu?", Type: question.TypeSelect, Category: "bullying", Order: 2,
			Options: []question.Option{
				{Text: "Escola", NextQuestionsIDs: []string{"qroom"}},
				{Text: "Internet", NextQuestionID: created.ID},
			},
		}
		rec = serve(newAuthRequest(http.MethodPut, "/v1/admin/questions/qwhere", adminToken, marshallObj(t, upd)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = serve(newAuthRequest(http.MethodDelete, "/v1/admin/questions/"+created.ID, adminToken))
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		where, err := questionRepo.GetQuestion(ctx(), "qwhere")
		require.NoError(t, err)
		assert.Empty(t, where.Options[1].NextQuestionID)
		assert.Equal(t, []string{"qroom"}, where.Options[0].NextQuestionsIDs)
	})
}
