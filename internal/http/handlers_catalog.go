package httpx

import (
	"net/http"

	"github.com/splax/bookshelf/internal/domain"
	"github.com/splax/bookshelf/internal/service/catalog"
)

func (r *Router) handleListAuthors(w http.ResponseWriter, req *http.Request) {
	authors, err := r.authors.List(req.Context())
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	if authors == nil {
		authors = []domain.Author{}
	}
	writeJSON(w, http.StatusOK, authors)
}

func (r *Router) handleCreateAuthor(w http.ResponseWriter, req *http.Request) {
	var payload catalog.AuthorInput
	if err := decodeJSON(w, req, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	author, err := r.authors.Create(req.Context(), payload)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, author)
}

func (r *Router) handleListBooks(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	books, err := r.books.List(req.Context(), domain.BookFilter{
		Search:          q.Get("search"),
		PublicationDate: q.Get("publication_date"),
		Language:        domain.Language(q.Get("language")),
	})
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	if books == nil {
		books = []domain.Book{}
	}
	writeJSON(w, http.StatusOK, books)
}

func (r *Router) handleCreateBook(w http.ResponseWriter, req *http.Request) {
	var payload catalog.BookInput
	if err := decodeJSON(w, req, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	book, err := r.books.Create(req.Context(), payload)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (r *Router) handleGetBook(w http.ResponseWriter, req *http.Request) {
	id, ok := parseID(req.PathValue("id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}
	book, err := r.books.Get(req.Context(), id)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (r *Router) handleUpdateBook(w http.ResponseWriter, req *http.Request) {
	id, ok := parseID(req.PathValue("id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}
	var patch domain.BookPatch
	if err := decodeJSON(w, req, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	book, err := r.books.Update(req.Context(), id, patch)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (r *Router) handleDeleteBook(w http.ResponseWriter, req *http.Request) {
	id, ok := parseID(req.PathValue("id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}
	if err := r.books.Delete(req.Context(), id); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
