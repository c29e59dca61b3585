package config

import (
	"encoding/json"
	"log"
	"os"
)

type Configuration struct {
	ApiPort string `json:"api_port"`
	LogPath string `json:"log_path"`

	Database string `json:"database"` // "sqlite3" ou "postgres"
	DbHost   string `json:"db_host"`
	DbPort   string `json:"db_port"`
	DbUser   string `json:"db_user"`
	DbName   string `json:"db_name"`
	DbPass   string `json:"db_pass"`

	Dispatcher struct {
		DebounceMS   int `json:"debounce_ms"`
		MaxGroupSize int `json:"max_group_size"`
		MaxGroupAgeS int `json:"max_group_age_s"`
		SweepTickMS  int `json:"sweep_tick_ms"`
	} `json:"dispatcher"`

	Sessions struct {
		TimeoutMin       int `json:"timeout_min"`
		OfertaHumanoApos int `json:"oferta_humano_apos"`
		LimiteErrosBot   int `json:"limite_erros_bot"`
	} `json:"sessions"`

	Fila struct {
		CapacidadePadrao int `json:"capacidade_padrao"`
	} `json:"fila"`

	Rabbit struct {
		URL      string `json:"url"`      // vazio = publisher de fallback (sem broker)
		Exchange string `json:"exchange"`
	} `json:"rabbit"`
}

func Get(path string) Configuration {
	var c Configuration
	if b, err := os.ReadFile(path); err != nil {
		log.Printf("config: %v, usando padrões", err)
	} else if err := json.Unmarshal(b, &c); err != nil {
		log.Fatal(err)
	}

	// defaults (pra evitar nil/zero chato)
	if c.ApiPort == "" {
		c.ApiPort = "8080"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/server.log"
	}
	if c.Database == "" {
		c.Database = "sqlite3"
	}
	if c.Dispatcher.DebounceMS <= 0 {
		c.Dispatcher.DebounceMS = 2000
	}
	if c.Dispatcher.MaxGroupSize <= 0 {
		c.Dispatcher.MaxGroupSize = 10
	}
	if c.Dispatcher.MaxGroupAgeS <= 0 {
		c.Dispatcher.MaxGroupAgeS = 10
	}
	if c.Dispatcher.SweepTickMS <= 0 {
		c.Dispatcher.SweepTickMS = 200
	}
	if c.Sessions.TimeoutMin <= 0 {
		c.Sessions.TimeoutMin = 30
	}
	if c.Sessions.OfertaHumanoApos <= 0 {
		c.Sessions.OfertaHumanoApos = 10
	}
	if c.Sessions.LimiteErrosBot <= 0 {
		c.Sessions.LimiteErrosBot = 3
	}
	if c.Fila.CapacidadePadrao <= 0 {
		c.Fila.CapacidadePadrao = 5
	}
	if c.Rabbit.Exchange == "" {
		c.Rabbit.Exchange = "atende.eventos"
	}

	// env vence o arquivo para segredos/ambiente
	if v := os.Getenv("RABBIT_URL"); v != "" {
		c.Rabbit.URL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.ApiPort = v
	}

	return c
}
