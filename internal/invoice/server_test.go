package invoice

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/invoice-categorizer/internal/categorize"
)

var anyPath = regexp.MustCompile(".*")

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		extractor   *mockExtractor
		auth        BasicAuth
		server      *Server
		ghttpServer *ghttp.Server
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		extractor = newMockExtractor()
		auth = BasicAuth{}
	})

	JustBeforeEach(func() {
		service := NewService(db, NewProcessor(newTestModel(), extractor), storage)
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AllowUnhandledRequests = true
		ghttpServer.UnhandledRequestStatusCode = http.StatusTeapot
		ghttpServer.RouteToHandler(http.MethodGet, anyPath, server.ServeHTTP)
		ghttpServer.RouteToHandler(http.MethodPost, anyPath, server.ServeHTTP)
		ghttpServer.RouteToHandler(http.MethodDelete, anyPath, server.ServeHTTP)
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	get := func(path string) (*http.Response, []byte) {
		resp, err := http.Get(ghttpServer.URL() + path)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp, body
	}

	upload := func(filename string, data []byte) (*http.Response, []byte) {
		var b bytes.Buffer
		writer := multipart.NewWriter(&b)
		part, err := writer.CreateFormFile("file", filename)
		Expect(err).NotTo(HaveOccurred())
		part.Write(data)
		Expect(writer.Close()).To(Succeed())

		resp, err := http.Post(ghttpServer.URL()+"/api/documents", writer.FormDataContentType(), &b)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp, body
	}

	del := func(path string) *http.Response {
		req, err := http.NewRequest(http.MethodDelete, ghttpServer.URL()+path, nil)
		Expect(err).NotTo(HaveOccurred())
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		return resp
	}

	Describe("handleListDocuments", func() {
		When("documents exist", func() {
			BeforeEach(func() {
				db.documents["id1"] = &Document{ID: "id1", Name: "a.pdf"}
				db.documents["id2"] = &Document{ID: "id2", Name: "b.pdf"}
			})

			It("should return all documents as JSON", func() {
				resp, body := get("/api/documents")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

				var docs []*Document
				Expect(json.Unmarshal(body, &docs)).To(Succeed())
				Expect(docs).To(HaveLen(2))
			})
		})

		When("no documents exist", func() {
			It("should return an empty array", func() {
				resp, body := get("/api/documents")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(string(body)).To(MatchJSON(`[]`))
			})
		})

		When("the service returns an error", func() {
			BeforeEach(func() {
				db.listErr = errors.New("service error")
			})

			It("should return Internal Server Error", func() {
				resp, body := get("/api/documents")
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(string(body)).To(MatchJSON(`{"error": "Internal server error"}`))
			})
		})
	})

	Describe("handleUploadDocument", func() {
		When("the upload succeeds", func() {
			It("should return the classified document", func() {
				resp, body := upload("march.txt", []byte("uber ride to airport\nlaptop stand 39.99"))
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

				var doc Document
				Expect(json.Unmarshal(body, &doc)).To(Succeed())
				Expect(doc.ID).NotTo(BeEmpty())
				Expect(doc.ContentType).To(Equal("text/plain"))
				Expect(doc.Records).To(HaveLen(2))
				Expect(doc.Records[0].Category).To(Equal(categorize.Travel))
				Expect(doc.Records[1].Category).To(Equal(categorize.Office))
				Expect(doc.Records[1].Amount.String()).To(Equal("39.99"))
			})

			It("should guess the content type from the filename", func() {
				resp, body := upload("scan.pdf", []byte("hotel accommodation"))
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var doc Document
				Expect(json.Unmarshal(body, &doc)).To(Succeed())
				Expect(doc.ContentType).To(Equal("application/pdf"))
			})
		})

		When("no file is provided", func() {
			It("should return Bad Request", func() {
				var b bytes.Buffer
				writer := multipart.NewWriter(&b)
				Expect(writer.Close()).To(Succeed())

				resp, err := http.Post(ghttpServer.URL()+"/api/documents", writer.FormDataContentType(), &b)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())

				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(string(body)).To(ContainSubstring("No file was selected"))
			})
		})

		When("the form is invalid", func() {
			It("should return Bad Request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/documents", "multipart/form-data", bytes.NewBufferString("invalid"))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())

				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(string(body)).To(ContainSubstring("Error parsing form"))
			})
		})

		When("processing fails", func() {
			BeforeEach(func() {
				extractor.err = errors.New("corrupt document")
			})

			It("should return the error in JSON", func() {
				resp, body := upload("march.pdf", []byte("data"))
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				var response map[string]string
				Expect(json.Unmarshal(body, &response)).To(Succeed())
				Expect(response["error"]).To(ContainSubstring("corrupt document"))
				Expect(storage.files).To(BeEmpty())
			})
		})
	})

	Describe("handleGetDocument", func() {
		When("the document exists", func() {
			BeforeEach(func() {
				db.documents["test-id"] = &Document{ID: "test-id", Name: "march.pdf"}
			})

			It("should return it", func() {
				resp, body := get("/api/documents/test-id")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var doc Document
				Expect(json.Unmarshal(body, &doc)).To(Succeed())
				Expect(doc.Name).To(Equal("march.pdf"))
			})
		})

		When("the document does not exist", func() {
			It("should return Not Found", func() {
				resp, body := get("/api/documents/nonexistent")
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				Expect(string(body)).To(ContainSubstring("Document not found"))
			})
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.getErr = errors.New("database error")
			})

			It("should return Internal Server Error", func() {
				resp, _ := get("/api/documents/test-id")
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})
	})

	Describe("handleGetDocumentFile", func() {
		BeforeEach(func() {
			db.documents["test-id"] = &Document{ID: "test-id", Filename: "test-id_march.pdf", ContentType: "application/pdf"}
		})

		When("the file exists", func() {
			BeforeEach(func() {
				storage.files["test-id_march.pdf"] = []byte("%PDF-1.4")
			})

			It("should return the file with its content type", func() {
				resp, body := get("/api/documents/test-id/file")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/pdf"))
				Expect(string(body)).To(Equal("%PDF-1.4"))
			})
		})

		When("the file is missing", func() {
			It("should return Not Found", func() {
				resp, body := get("/api/documents/test-id/file")
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				Expect(string(body)).To(ContainSubstring("File not found"))
			})
		})

		When("the document does not exist", func() {
			It("should return Not Found", func() {
				resp, _ := get("/api/documents/missing/file")
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})

		When("the storage cannot be read", func() {
			BeforeEach(func() {
				storage.getErr = errors.New("input/output error")
			})

			It("should return Internal Server Error", func() {
				resp, body := get("/api/documents/test-id/file")
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(string(body)).To(ContainSubstring("Internal server error"))
				Expect(string(body)).NotTo(ContainSubstring("input/output"))
			})
		})
	})

	Describe("handleDeleteDocument", func() {
		When("the document exists", func() {
			BeforeEach(func() {
				db.documents["test-id"] = &Document{ID: "test-id", Filename: "test-id_march.pdf"}
				storage.files["test-id_march.pdf"] = []byte("data")
			})

			It("should delete it and its file", func() {
				resp := del("/api/documents/test-id")
				Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
				Expect(db.documents).To(BeEmpty())
				Expect(storage.files).To(BeEmpty())
			})
		})

		When("the document does not exist", func() {
			It("should return Not Found", func() {
				resp := del("/api/documents/nonexistent")
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.documents["test-id"] = &Document{ID: "test-id"}
				db.deleteErr = errors.New("database error")
			})

			It("should return Internal Server Error", func() {
				resp := del("/api/documents/test-id")
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})
	})

	Describe("handleReport", func() {
		BeforeEach(func() {
			db.documents["a"] = &Document{ID: "a", Records: []LineRecord{
				{Category: categorize.Travel, Amount: amountOf("199.99")},
				{Category: categorize.Travel},
				{Category: categorize.Food},
			}}
		})

		It("should return counts for every category", func() {
			resp, body := get("/api/report")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var report Summary
			Expect(json.Unmarshal(body, &report)).To(Succeed())
			Expect(report.Documents).To(Equal(1))
			Expect(report.Lines).To(Equal(3))
			Expect(report.Counts).To(Equal(CategoryCounts{
				{Category: categorize.Travel, Count: 2},
				{Category: categorize.Food, Count: 1},
				{Category: categorize.Software, Count: 0},
				{Category: categorize.Office, Count: 0},
				{Category: categorize.Other, Count: 0},
			}))
			Expect(report.Totals[0].Amount.String()).To(Equal("199.99"))
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.listErr = errors.New("database error")
			})

			It("should return Internal Server Error", func() {
				resp, _ := get("/api/report")
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})
	})

	Describe("handleListRuns", func() {
		BeforeEach(func() {
			db.runs["run-1"] = &Run{ID: "run-1", Source: "/invoices", Report: NewSummary(nil)}
		})

		It("should return the recorded runs", func() {
			resp, body := get("/api/runs")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var runs []*Run
			Expect(json.Unmarshal(body, &runs)).To(Succeed())
			Expect(runs).To(HaveLen(1))
			Expect(runs[0].Source).To(Equal("/invoices"))
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.runErr = errors.New("database error")
			})

			It("should return Internal Server Error", func() {
				resp, _ := get("/api/runs")
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})
	})

	Describe("HandleMetrics", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
		})

		It("should serve the handler without authentication", func() {
			server.HandleMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("invoice_documents_processed_total 1\n"))
			}))

			resp, body := get("/metrics")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(body)).To(ContainSubstring("invoice_documents_processed_total"))
		})
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
		})

		request := func(user, pass string) *http.Response {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/documents", nil)
			Expect(err).NotTo(HaveOccurred())
			if user != "" || pass != "" {
				req.SetBasicAuth(user, pass)
			}
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			return resp
		}

		When("valid credentials are provided", func() {
			It("should allow the request", func() {
				Expect(request("admin", "secret").StatusCode).To(Equal(http.StatusOK))
			})
		})

		When("invalid credentials are provided", func() {
			It("should return Unauthorized", func() {
				Expect(request("admin", "wrong").StatusCode).To(Equal(http.StatusUnauthorized))
			})
		})

		When("no credentials are provided", func() {
			It("should ask for basic auth", func() {
				resp := request("", "")
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
				Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
			})
		})
	})

	Describe("corsMiddleware", func() {
		It("should answer preflight requests", func() {
			req, err := http.NewRequest(http.MethodOptions, "/api/documents", nil)
			Expect(err).NotTo(HaveOccurred())

			w := httptest.NewRecorder()
			corsMiddleware(server).ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(w.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring("DELETE"))
		})
	})
})
