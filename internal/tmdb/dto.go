package tmdb

// PopularResponse is the body of GET /movie/popular
type PopularResponse struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results,omitempty"`
	Results      []MovieListing `json:"results"`
}

// MovieListing is one entry of a feed page
type MovieListing struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	ReleaseDate string   `json:"release_date,omitempty"` // YYYY-MM-DD, may be empty
	PosterPath  string   `json:"poster_path,omitempty"`
	VoteAverage *float64 `json:"vote_average,omitempty"`
	VoteCount   int      `json:"vote_count,omitempty"`
}

// Genre is a named TMDB genre
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MovieDetails is the body of GET /movie/{id}
type MovieDetails struct {
	MovieListing
	Overview string  `json:"overview,omitempty"`
	Runtime  *int    `json:"runtime,omitempty"` // minutes
	Genres   []Genre `json:"genres,omitempty"`
}

// ErrorResponse is the body TMDB sends with non-2xx statuses
type ErrorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}
